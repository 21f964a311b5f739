// Package content ships the built-in markdown content plugin. It contributes
// a route that enumerates markdown files under the content directory, parsing
// YAML frontmatter into per-request data.
package content

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitewright/internal/config"
	"git.home.luguber.info/inful/sitewright/internal/plugin"
	"git.home.luguber.info/inful/sitewright/internal/router"
	"git.home.luguber.info/inful/sitewright/internal/site"
)

const pluginName = "content"

func init() {
	plugin.RegisterBuiltin(pluginName, New)
}

// New returns the content plugin declaration.
func New() *plugin.Plugin {
	return &plugin.Plugin{
		Name:        pluginName,
		Description: "enumerates markdown files under the content directory as page requests",
		Config: map[string]any{
			"extension": ".md",
			"template":  "page",
		},
		Init: func(inst *plugin.Instance) (*plugin.Instance, error) {
			dir := inst.Settings.Locations().Content
			if _, err := os.Stat(dir); err != nil {
				slog.Warn("Content directory not readable", "plugin", pluginName, "dir", dir, "error", err)
			}
			return inst, nil
		},
		Routes: map[string]router.Route{
			"content": {
				Name:      "content",
				Template:  "page",
				All:       enumerate,
				Permalink: permalink,
				Data:      requestData,
			},
		},
	}
}

// enumerate walks the content directory and yields one request per markdown
// file. The slug is the slugified relative path without extension; an
// index.md maps to its directory's slug.
func enumerate(ctx context.Context, settings config.View) ([]site.Request, error) {
	root := settings.Locations().Content
	var reqs []site.Request
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".md") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		fm, body, err := readDocument(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}

		data := map[string]any{
			"source":  rel,
			"content": body,
		}
		for k, v := range fm {
			data[k] = v
		}
		reqs = append(reqs, site.Request{
			Slug: slugFor(rel),
			Data: data,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate content under %s: %w", root, err)
	}
	return reqs, nil
}

// slugFor maps a relative markdown path to a slug: each path segment is
// slugified, the extension is dropped, and a trailing index segment folds
// into its directory ("guides/Setup Notes.md" -> "guides/setup-notes").
func slugFor(rel string) string {
	rel = strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
	segments := strings.Split(rel, "/")
	for i, s := range segments {
		segments[i] = router.Slugify(s)
	}
	if last := len(segments) - 1; segments[last] == "index" {
		segments = segments[:last]
	}
	if len(segments) == 0 {
		return "index"
	}
	return strings.Join(segments, "/")
}

func permalink(req *site.Request, _ config.View) string {
	if req.Slug == "index" {
		return "/"
	}
	return path.Clean("/"+req.Slug) + "/"
}

// requestData returns the fields captured during enumeration.
func requestData(_ context.Context, req *site.Request) (map[string]any, error) {
	out := make(map[string]any, len(req.Data))
	for k, v := range req.Data {
		out[k] = v
	}
	return out, nil
}

var frontmatterDelim = []byte("---")

// readDocument splits a markdown file into YAML frontmatter and body. Files
// without a frontmatter block yield an empty map and the full content.
func readDocument(p string) (map[string]any, string, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, "", err
	}
	trimmed := bytes.TrimPrefix(raw, []byte("\ufeff"))
	if !bytes.HasPrefix(trimmed, frontmatterDelim) {
		return map[string]any{}, string(raw), nil
	}
	rest := trimmed[len(frontmatterDelim):]
	idx := bytes.Index(rest, append([]byte("\n"), frontmatterDelim...))
	if idx < 0 {
		return map[string]any{}, string(raw), nil
	}
	head := rest[:idx]
	body := rest[idx+1+len(frontmatterDelim):]
	body = bytes.TrimPrefix(body, []byte("\n"))

	fm := map[string]any{}
	if err := yaml.Unmarshal(head, &fm); err != nil {
		return nil, "", fmt.Errorf("parse frontmatter: %w", err)
	}
	return fm, string(body), nil
}
