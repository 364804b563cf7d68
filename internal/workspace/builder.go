// Package workspace renders a local source tree into the context document
// sent to the model at session start.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"atelier.dev/atelier/common/lang"
	"atelier.dev/atelier/common/logger"
	"atelier.dev/atelier/core/config"
)

// NoMatchesSentinel is the document text when no file passes the filters.
const NoMatchesSentinel = "No matching files found in the project."

// Stats describes what a Build included and left out. Excluded counts
// candidate files dropped for size, read failures, or the token budget;
// files outside the extension filter were never candidates.
type Stats struct {
	Included        int
	Excluded        int
	TotalBytes      int
	EstimatedTokens int
}

// FileEntry is one included file before rendering.
type FileEntry struct {
	RelPath  string
	Language string
	Content  string
}

// ContextDocument is the rendered project context plus its stats.
type ContextDocument struct {
	Text  string
	Stats Stats
}

// Builder walks the workspace root and accumulates file contents until the
// token budget is reached.
type Builder struct {
	root         string
	extensions   map[string]struct{} // dot-prefixed lowercase; empty = no filter
	excludedDirs map[string]struct{}
	tokenBudget  int
	maxFileBytes int
}

func NewBuilder(cfg config.WorkspaceConfig) *Builder {
	extensions := make(map[string]struct{}, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		if normalized := lang.NormalizeExtension(ext); normalized != "" {
			extensions[normalized] = struct{}{}
		}
	}

	excludedDirs := make(map[string]struct{}, len(cfg.ExcludedDirs))
	for _, dir := range cfg.ExcludedDirs {
		excludedDirs[dir] = struct{}{}
	}

	return &Builder{
		root:         cfg.Root,
		extensions:   extensions,
		excludedDirs: excludedDirs,
		tokenBudget:  cfg.TokenBudget,
		maxFileBytes: cfg.MaxFileBytes,
	}
}

// Root returns the workspace root directory.
func (b *Builder) Root() string {
	return b.root
}

// Build walks the root and renders the context document. Files are added in
// lexical walk order until adding the next one would push the token estimate
// over budget; from that point every remaining candidate is excluded.
// Already-added files are never removed. Only an inaccessible root is an
// error; unreadable files are logged and counted as excluded.
func (b *Builder) Build(ctx context.Context) (ContextDocument, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "atelier.workspace"})

	if _, err := os.Stat(b.root); err != nil {
		return ContextDocument{}, fmt.Errorf("workspace root: %w", err)
	}

	var (
		entries      []FileEntry
		stats        Stats
		runningBytes int
		budgetSpent  bool
	)

	walkErr := filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == b.root {
				return err
			}
			slog.WarnContext(ctx, "skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			if b.matchesExtension(path) {
				stats.Excluded++
			}
			return nil
		}

		if d.IsDir() {
			if path == b.root {
				return nil
			}
			if _, pruned := b.excludedDirs[d.Name()]; pruned {
				return filepath.SkipDir
			}
			return nil
		}

		if !b.matchesExtension(path) {
			return nil
		}

		if budgetSpent {
			stats.Excluded++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			slog.WarnContext(ctx, "skipping file without metadata", "path", path, "error", err)
			stats.Excluded++
			return nil
		}

		if info.Size() > int64(b.maxFileBytes) {
			slog.DebugContext(ctx, "skipping oversized file",
				"path", path,
				"size_bytes", info.Size(),
				"max_bytes", b.maxFileBytes)
			stats.Excluded++
			return nil
		}

		if EstimateTokens(runningBytes+int(info.Size())) > b.tokenBudget {
			slog.InfoContext(ctx, "token budget reached, stopping accumulation",
				"included", stats.Included,
				"budget", b.tokenBudget)
			budgetSpent = true
			stats.Excluded++
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable file", "path", path, "error", err)
			stats.Excluded++
			return nil
		}

		relPath, err := filepath.Rel(b.root, path)
		if err != nil {
			relPath = path
		}

		entries = append(entries, FileEntry{
			RelPath:  filepath.ToSlash(relPath),
			Language: lang.ForPath(path),
			Content:  string(content),
		})
		runningBytes += len(content)
		stats.Included++
		stats.TotalBytes += len(content)
		return nil
	})
	if walkErr != nil {
		return ContextDocument{}, fmt.Errorf("walking workspace: %w", walkErr)
	}

	stats.EstimatedTokens = EstimateTokens(stats.TotalBytes)

	slog.InfoContext(ctx, "context document built",
		"included", stats.Included,
		"excluded", stats.Excluded,
		"total_bytes", stats.TotalBytes,
		"estimated_tokens", stats.EstimatedTokens)

	if len(entries) == 0 {
		return ContextDocument{Text: NoMatchesSentinel, Stats: stats}, nil
	}

	return ContextDocument{Text: render(entries), Stats: stats}, nil
}

func (b *Builder) matchesExtension(path string) bool {
	if len(b.extensions) == 0 {
		return true
	}
	_, ok := b.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// render concatenates entries as labeled fenced blocks: a relative path
// header followed by the content fenced with its language tag.
func render(entries []FileEntry) string {
	var sb strings.Builder

	for _, entry := range entries {
		sb.WriteString(fmt.Sprintf("## %s\n\n", entry.RelPath))
		sb.WriteString("```")
		sb.WriteString(entry.Language)
		sb.WriteString("\n")
		sb.WriteString(entry.Content)
		if !strings.HasSuffix(entry.Content, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("```\n\n")
	}

	return sb.String()
}
