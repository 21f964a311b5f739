// Package gitmeta ships the built-in git metadata plugin. During bootstrap it
// stamps the head commit of the project repository into the shared data bag,
// so templates can render commit hash, branch, and commit time.
package gitmeta

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/sitewright/internal/hooks"
	"git.home.luguber.info/inful/sitewright/internal/plugin"
)

const pluginName = "gitmeta"

func init() {
	plugin.RegisterBuiltin(pluginName, New)
}

// New returns the gitmeta plugin declaration.
func New() *plugin.Plugin {
	return &plugin.Plugin{
		Name:        pluginName,
		Description: "stamps head commit metadata of the project repository into site data",
		Config: map[string]any{
			"path": ".",
		},
		Hooks: []hooks.Hook{
			{
				Point: hooks.PointBootstrap,
				Name:  "gitmeta-stamp-head",
				Run:   stampHead,
			},
		},
	}
}

// stampHead resolves the head commit of the configured repository. A missing
// or headless repository is not an error; the site simply builds without git
// metadata.
func stampHead(_ context.Context, p *hooks.Payload) (*hooks.Patch, error) {
	repoPath := "."
	if inst, ok := p.Plugin.(*plugin.Instance); ok && inst != nil {
		if s, ok := inst.Config["path"].(string); ok && s != "" {
			repoPath = s
		}
	}

	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		slog.Warn("No git repository found, skipping git metadata", "path", repoPath, "error", err)
		return nil, nil
	}
	head, err := repo.Head()
	if err != nil {
		slog.Warn("Repository has no head, skipping git metadata", "path", repoPath, "error", err)
		return nil, nil
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		slog.Warn("Head commit not readable, skipping git metadata", "path", repoPath, "error", err)
		return nil, nil
	}

	subject, _, _ := strings.Cut(commit.Message, "\n")
	return &hooks.Patch{
		Data: map[string]any{
			"git": map[string]any{
				"commit":      head.Hash().String(),
				"shortCommit": head.Hash().String()[:7],
				"branch":      head.Name().Short(),
				"committedAt": commit.Committer.When,
				"subject":     strings.TrimSpace(subject),
			},
		},
	}, nil
}
