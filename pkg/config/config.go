// Package config loads the clangd-highlight configuration from YAML, HCL or
// HCL flavoured JSON.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/clangd-highlight/pkg/clangd"
	"github.com/walteh/clangd-highlight/pkg/markdown"
	"github.com/walteh/clangd-highlight/pkg/position"
	"github.com/walteh/clangd-highlight/pkg/render"
)

type Config struct {
	Clangd   *ClangdBlock   `json:"clangd,omitempty" yaml:"clangd,omitempty" hcl:"clangd,block"`
	Markdown *MarkdownBlock `json:"markdown,omitempty" yaml:"markdown,omitempty" hcl:"markdown,block"`
	Render   *RenderBlock   `json:"render,omitempty" yaml:"render,omitempty" hcl:"render,block"`
}

type ClangdBlock struct {
	Path           string   `json:"path,omitempty" yaml:"path,omitempty" hcl:"path,optional"`
	Args           []string `json:"args,omitempty" yaml:"args,omitempty" hcl:"args,optional"`
	Protocol       string   `json:"protocol,omitempty" yaml:"protocol,omitempty" hcl:"protocol,optional"`
	OffsetEncoding string   `json:"offset_encoding,omitempty" yaml:"offset_encoding,omitempty" hcl:"offset_encoding,optional"`
	Timeout        string   `json:"timeout,omitempty" yaml:"timeout,omitempty" hcl:"timeout,optional"`
	LanguageID     string   `json:"language_id,omitempty" yaml:"language_id,omitempty" hcl:"language_id,optional"`
}

type MarkdownBlock struct {
	Languages   []string `json:"languages,omitempty" yaml:"languages,omitempty" hcl:"languages,optional"`
	ClassPrefix string   `json:"class_prefix,omitempty" yaml:"class_prefix,omitempty" hcl:"class_prefix,optional"`
}

type RenderBlock struct {
	Format string `json:"format,omitempty" yaml:"format,omitempty" hcl:"format,optional"`

	// TabWidth of zero defers to .editorconfig.
	TabWidth int `json:"tab_width,omitempty" yaml:"tab_width,omitempty" hcl:"tab_width,optional"`
}

func Default() *Config {
	def := clangd.DefaultOptions()
	return &Config{
		Clangd: &ClangdBlock{
			Path:           def.Path,
			Args:           def.Args,
			Protocol:       string(def.Protocol),
			OffsetEncoding: string(def.OffsetEncoding),
			Timeout:        def.Timeout.String(),
			LanguageID:     def.LanguageID,
		},
		Markdown: &MarkdownBlock{
			Languages:   slices.Clone(markdown.DefaultLanguages),
			ClassPrefix: render.DefaultClassPrefix,
		},
		Render: &RenderBlock{
			Format: string(render.FormatANSI),
		},
	}
}

// Load reads path from fs, picking the parser by extension. An empty path
// returns the defaults. Unset fields keep their default values.
func Load(fs afero.Fs, path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
	case ".hcl", ".json":
		if err := decodeHCL(data, path, &cfg); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func decodeHCL(data []byte, path string, cfg *Config) error {
	parser := hclparse.NewParser()

	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		file, diags = parser.ParseJSON(data, path)
	} else {
		file, diags = parser.ParseHCL(data, path)
	}
	if diags.HasErrors() {
		return errors.Errorf("parsing HCL: %s", diags.Error())
	}

	diags = gohcl.DecodeBody(file.Body, EvalContext(), cfg)
	if diags.HasErrors() {
		return errors.Errorf("decoding HCL: %s", diags.Error())
	}
	return nil
}

// EvalContext exposes the process environment as env.NAME.
func EvalContext() *hcl.EvalContext {
	env := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
	}
}

func (c *Config) applyDefaults() {
	def := Default()

	if c.Clangd == nil {
		c.Clangd = def.Clangd
	} else {
		if c.Clangd.Path == "" {
			c.Clangd.Path = def.Clangd.Path
		}
		if c.Clangd.Args == nil {
			c.Clangd.Args = def.Clangd.Args
		}
		if c.Clangd.Protocol == "" {
			c.Clangd.Protocol = def.Clangd.Protocol
		}
		if c.Clangd.OffsetEncoding == "" {
			c.Clangd.OffsetEncoding = def.Clangd.OffsetEncoding
		}
		if c.Clangd.Timeout == "" {
			c.Clangd.Timeout = def.Clangd.Timeout
		}
		if c.Clangd.LanguageID == "" {
			c.Clangd.LanguageID = def.Clangd.LanguageID
		}
	}

	if c.Markdown == nil {
		c.Markdown = def.Markdown
	} else {
		if len(c.Markdown.Languages) == 0 {
			c.Markdown.Languages = def.Markdown.Languages
		}
		if c.Markdown.ClassPrefix == "" {
			c.Markdown.ClassPrefix = def.Markdown.ClassPrefix
		}
	}

	if c.Render == nil {
		c.Render = def.Render
	} else if c.Render.Format == "" {
		c.Render.Format = def.Render.Format
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, err := clangd.ParseProtocol(c.Clangd.Protocol); err != nil {
		result = multierror.Append(result, errors.Errorf("clangd.protocol: %w", err))
	}
	if _, err := position.ParseEncoding(c.Clangd.OffsetEncoding); err != nil {
		result = multierror.Append(result, errors.Errorf("clangd.offset_encoding: %w", err))
	}
	if d, err := time.ParseDuration(c.Clangd.Timeout); err != nil {
		result = multierror.Append(result, errors.Errorf("clangd.timeout: %w", err))
	} else if d < 0 {
		result = multierror.Append(result, errors.Errorf("clangd.timeout: must not be negative, got %s", d))
	}
	if c.Clangd.Path == "" {
		result = multierror.Append(result, errors.New("clangd.path: must not be empty"))
	}
	for i, l := range c.Markdown.Languages {
		if strings.TrimSpace(l) == "" {
			result = multierror.Append(result, errors.Errorf("markdown.languages[%d]: must not be empty", i))
		}
	}
	if _, err := render.ParseFormat(c.Render.Format); err != nil {
		result = multierror.Append(result, errors.Errorf("render.format: %w", err))
	}
	if c.Render.TabWidth < 0 {
		result = multierror.Append(result, errors.Errorf("render.tab_width: must not be negative, got %d", c.Render.TabWidth))
	}

	return result.ErrorOrNil()
}

// ClangdOptions converts the clangd block. Call Validate first.
func (c *Config) ClangdOptions() (clangd.Options, error) {
	proto, err := clangd.ParseProtocol(c.Clangd.Protocol)
	if err != nil {
		return clangd.Options{}, err
	}
	enc, err := position.ParseEncoding(c.Clangd.OffsetEncoding)
	if err != nil {
		return clangd.Options{}, err
	}
	timeout, err := time.ParseDuration(c.Clangd.Timeout)
	if err != nil {
		return clangd.Options{}, errors.Errorf("parsing clangd timeout: %w", err)
	}
	return clangd.Options{
		Path:           c.Clangd.Path,
		Args:           c.Clangd.Args,
		Protocol:       proto,
		OffsetEncoding: enc,
		LanguageID:     c.Clangd.LanguageID,
		Timeout:        timeout,
	}, nil
}

func (c *Config) MarkdownOptions() markdown.Options {
	return markdown.Options{
		Languages:   c.Markdown.Languages,
		ClassPrefix: c.Markdown.ClassPrefix,
	}
}

func (c *Config) RenderFormat() (render.Format, error) {
	return render.ParseFormat(c.Render.Format)
}

// TabWidth returns the configured tab width, or the .editorconfig one for path.
func (c *Config) TabWidth(path string) int {
	if c.Render.TabWidth > 0 {
		return c.Render.TabWidth
	}
	return render.TabWidthFor(path, render.DefaultTabWidth)
}
