// Package assets describes the client build: which bundles exist, what they
// are called, where they are written and under which URL prefix they are
// served. The server layout uses it to emit script and stylesheet tags.
package assets

import (
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Entry names.
const (
	EntryApp     = "app"
	EntryVendors = "vendors"
)

// FilenamePattern is the output name of every entry bundle.
const FilenamePattern = "[name].client.js"

// Stylesheets extracted in production builds, in link order.
var productionStylesheets = []string{"vendors.css", "style.css"}

// Env is the unprefixed build environment.
type Env struct {
	NodeEnv    string `env:"NODE_ENV"`
	PublicPath string `env:"PUBLIC_PATH"`
}

// Flags are explicit overrides; they win over the environment.
type Flags struct {
	// Production forces a production build when "true".
	Production string
	PublicPath string
}

// Entry is one bundle and the modules it starts from.
type Entry struct {
	Name    string
	Modules []string
}

// Config is the resolved build configuration.
type Config struct {
	Production  bool
	PublicPath  string
	BuildDir    string
	OutputDir   string
	Entries     []Entry
	Devtool     string
	Stylesheets []string
	Defines     map[string]string
}

// ParseEnv reads Env from the process environment.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Load resolves the configuration from flags and the process environment.
func Load(flags Flags, buildDir string) (Config, error) {
	e, err := ParseEnv()
	if err != nil {
		return Config{}, err
	}
	return Resolve(flags, e, buildDir), nil
}

// Resolve builds the configuration. Production is on when the flag is "true"
// or NODE_ENV is "production". The public path is the flag, else
// PUBLIC_PATH, else "/".
func Resolve(flags Flags, e Env, buildDir string) Config {
	prod := flags.Production == "true" || e.NodeEnv == "production"

	public := flags.PublicPath
	if public == "" {
		public = e.PublicPath
	}
	public = normalizePublicPath(public)

	if buildDir == "" {
		buildDir = "dist"
	}

	cfg := Config{
		Production: prod,
		PublicPath: public,
		BuildDir:   buildDir,
		OutputDir:  filepath.Join(buildDir, filepath.FromSlash(public)),
		Defines: map[string]string{
			"process.env.NODE_ENV": strconv.Quote(mode(prod)),
			"__DEV__":              strconv.FormatBool(!prod),
		},
	}

	app := Entry{Name: EntryApp, Modules: []string{"./index.client"}}
	if prod {
		cfg.Devtool = "source-map"
		cfg.Stylesheets = append([]string(nil), productionStylesheets...)
	} else {
		cfg.Devtool = "eval-source-map"
		app.Modules = append([]string{"dev-reload/client?reload=true"}, app.Modules...)
	}
	cfg.Entries = []Entry{
		app,
		{Name: EntryVendors, Modules: []string{"runtime", "store", "router"}},
	}
	return cfg
}

func mode(prod bool) string {
	if prod {
		return "production"
	}
	return "development"
}

// normalizePublicPath makes p absolute with a trailing slash.
func normalizePublicPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// Filename returns the output file name of an entry.
func Filename(entry string) string {
	return strings.ReplaceAll(FilenamePattern, "[name]", entry)
}

// URL returns the public URL of a built file.
func (c Config) URL(file string) string {
	return path.Join(c.PublicPath, file)
}

// Scripts returns the script URLs in load order: vendors, then app.
func (c Config) Scripts() []string {
	return []string{c.URL(Filename(EntryVendors)), c.URL(Filename(EntryApp))}
}

// StyleLinks returns the stylesheet URLs. Development builds inline styles
// and link none.
func (c Config) StyleLinks() []string {
	out := make([]string, 0, len(c.Stylesheets))
	for _, s := range c.Stylesheets {
		out = append(out, c.URL(s))
	}
	return out
}

// ScriptTags renders the script elements.
func (c Config) ScriptTags() template.HTML {
	var b strings.Builder
	for _, src := range c.Scripts() {
		fmt.Fprintf(&b, `<script src="%s"></script>`, template.HTMLEscapeString(src))
	}
	return template.HTML(b.String())
}

// StyleTags renders the stylesheet link elements.
func (c Config) StyleTags() template.HTML {
	var b strings.Builder
	for _, href := range c.StyleLinks() {
		fmt.Fprintf(&b, `<link rel="stylesheet" href="%s">`, template.HTMLEscapeString(href))
	}
	return template.HTML(b.String())
}

// Files lists every file the build is expected to write to OutputDir.
func (c Config) Files() []string {
	files := make([]string, 0, len(c.Entries)+len(c.Stylesheets))
	for _, e := range c.Entries {
		files = append(files, Filename(e.Name))
	}
	return append(files, c.Stylesheets...)
}

// Missing returns the expected files not present in OutputDir.
func (c Config) Missing() []string {
	var missing []string
	for _, f := range c.Files() {
		if _, err := os.Stat(filepath.Join(c.OutputDir, f)); err != nil {
			missing = append(missing, f)
		}
	}
	return missing
}
