// Package driver orchestrates one full update run: load the
// compilation database and config, diff against the store, run every
// compile command (and every header the fixpoint discovers) through
// the Parser, and commit the result in a single transaction (spec
// §4.6). Grounded on Indexer.run / _process_files in
// _examples/original_source/yacbi.py, split across the normalizer,
// compiledb, filemanager, indexer and store packages this project
// built from that single Python class.
package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kubinux/yacbi-go/internal/compiledb"
	"github.com/kubinux/yacbi-go/internal/config"
	"github.com/kubinux/yacbi-go/internal/debug"
	"github.com/kubinux/yacbi-go/internal/filemanager"
	"github.com/kubinux/yacbi-go/internal/indexer"
	"github.com/kubinux/yacbi-go/internal/normalizer"
	"github.com/kubinux/yacbi-go/internal/parser"
	"github.com/kubinux/yacbi-go/internal/store"
)

// Now is overridable in tests; production code always uses time.Now.
var Now = time.Now

// Update runs one full incremental update against root (spec §4.6).
// Config and compilation-database errors are fatal before any
// transaction opens; a single file's parse failure is logged and
// skipped rather than aborting the run; a store error rolls the whole
// transaction back (spec §7).
func Update(ctx context.Context, root string, st *store.Store, p parser.Parser, cfg *config.Config) error {
	cdb, err := compiledb.Load(root)
	if err != nil {
		return fmt.Errorf("load compilation database: %w", err)
	}

	tx, err := st.BeginUpdate(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	existing, err := tx.ExistingFiles()
	if err != nil {
		return err
	}

	diff := filemanager.ComputeDiff(existing, cdb.AllFiles())
	for _, path := range diff.Removed {
		if err := tx.DeleteOrDemote(path); err != nil {
			return err
		}
	}

	existing, err = tx.ExistingFiles()
	if err != nil {
		return err
	}
	existingByPath := make(map[string]store.FileRow, len(existing))
	argsByFileID := make(map[int64][]string, len(existing))
	for _, f := range existing {
		existingByPath[f.Path] = f
		args, err := tx.QueryArgsByFileID(f.ID)
		if err != nil {
			return err
		}
		argsByFileID[f.ID] = args
	}

	var queue []indexer.Job
	for _, path := range diff.Added {
		cmd, ok := cdb.CommandFor(path)
		if !ok {
			continue
		}
		a := normalizer.MakeArgs(cmd.Directory, cmd.Arguments, cfg.ExtraArgs, cfg.BannedArgs)
		queue = append(queue, indexer.Job{
			Path:           path,
			WorkingDir:     cmd.Directory,
			Args:           a.All,
			HasX:           a.HasX,
			ForcedIncludes: a.ForcedIncludes,
			IsIncluded:     false,
		})
	}

	stale, inlineStale := filemanager.PartitionInline(filemanager.StaleExisting(existing, argsByFileID, filemanager.Mtime), cfg.InlineFiles)
	for _, sf := range stale {
		// sources_to_update (spec §4.4 item 2): a stale root still
		// listed in the compilation database is re-parsed with its
		// *current* entry there, not the argv it happened to be
		// indexed with last time; only a root the database no longer
		// lists (or a header, which the database never lists at all)
		// falls back to the store-reconstructed argv.
		workingDir, args, extra, banned := sf.WorkingDir, sf.Args, []string(nil), []string(nil)
		if !sf.IsIncluded {
			if cmd, ok := cdb.CommandFor(sf.Path); ok {
				workingDir, args = cmd.Directory, cmd.Arguments
				extra, banned = cfg.ExtraArgs, cfg.BannedArgs
			}
		}
		a := normalizer.MakeArgs(workingDir, args, extra, banned)
		queue = append(queue, indexer.Job{
			Path:           sf.Path,
			WorkingDir:     workingDir,
			Args:           a.All,
			HasX:           a.HasX,
			ForcedIncludes: a.ForcedIncludes,
			IsIncluded:     sf.IsIncluded,
		})
	}

	visited := make(map[string]bool, len(queue))
	for _, j := range queue {
		visited[j.Path] = true
	}

	// An inline header is never parsed standalone (spec §4.4): instead
	// its most-recently-updated includer is re-queued in its place, so
	// the header's new content flows through that host's own parse.
	for _, sf := range inlineStale {
		fileID, ok := existingByPath[sf.Path]
		if !ok {
			continue
		}
		host, found, err := filemanager.ResolveInlineHost(tx, fileID.ID)
		if err != nil {
			return err
		}
		if !found || visited[host.Path] {
			continue
		}
		visited[host.Path] = true
		hostArgs := argsByFileID[host.ID]
		a := normalizer.MakeArgs(host.WorkingDir, hostArgs, nil, nil)
		queue = append(queue, indexer.Job{
			Path:           host.Path,
			WorkingDir:     host.WorkingDir,
			Args:           a.All,
			HasX:           a.HasX,
			ForcedIncludes: a.ForcedIncludes,
			IsIncluded:     host.IsIncluded,
		})
	}

	rootPrefix := root + string(filepath.Separator)
	var indexed []*indexer.Result
	for len(queue) > 0 {
		var next []indexer.Job
		for _, job := range queue {
			res, err := indexer.IndexFile(ctx, p, root, job)
			if err != nil {
				debug.Warnf("skipping %s: %v", job.Path, err)
				continue
			}
			indexed = append(indexed, res)

			parentIsCpp := normalizer.IsCppSource(job.Path)
			for _, inc := range res.Includes {
				if visited[inc.Path] {
					continue
				}
				visited[inc.Path] = true
				if _, ok := existingByPath[inc.Path]; ok {
					continue // already a files row; picked up by StaleExisting if it needs re-parsing
				}
				childArgs, childHasX := indexer.NextChildArgs(job.Args, job.IsIncluded, job.HasX, parentIsCpp)
				if inc.Path == root || strings.HasPrefix(inc.Path, rootPrefix) {
					next = append(next, indexer.Job{
						Path:       inc.Path,
						WorkingDir: job.WorkingDir,
						Args:       childArgs,
						HasX:       childHasX,
						IsIncluded: true,
					})
					continue
				}
				// should_index would reject a path outside the project
				// root (spec §4.4): record a minimal stub row instead of
				// parsing it, so a forced include naming a header
				// outside the root still resolves (IndexFile already
				// drops other out-of-root edges; spec §9's open
				// question: the stub's argv is the child argv, even
				// though no cursors were ever observed there).
				indexed = append(indexed, &indexer.Result{
					Path:       inc.Path,
					WorkingDir: job.WorkingDir,
					Args:       childArgs,
					HasX:       childHasX,
					IsIncluded: true,
					RefsByUSR:  map[string]map[store.RefLocation]store.RefValue{},
				})
			}
		}
		queue = next
	}

	now := Now()
	pathToFileID := make(map[string]int64, len(indexed)+len(existing))
	for _, f := range existing {
		pathToFileID[f.Path] = f.ID
	}

	for _, res := range indexed {
		fileID, err := tx.UpsertFile(res.Path, res.WorkingDir, now, res.IsIncluded)
		if err != nil {
			return err
		}
		pathToFileID[res.Path] = fileID
		if err := tx.ReplaceArgs(fileID, res.Args); err != nil {
			return err
		}
		if err := tx.ReplaceRefs(fileID, res.RefsByUSR); err != nil {
			return err
		}
	}

	for _, res := range indexed {
		fileID := pathToFileID[res.Path]
		var edges []store.ResolvedInclude
		for _, inc := range res.Includes {
			targetID, ok := pathToFileID[inc.Path]
			if !ok {
				debug.Warnf("include target %s for %s never indexed, dropping edge", inc.Path, res.Path)
				continue
			}
			edges = append(edges, store.ResolvedInclude{
				IncludedFileID: targetID,
				Line:           inc.Line,
				Column:         inc.Column,
			})
		}
		if err := tx.ReplaceIncludes(fileID, edges); err != nil {
			return err
		}
	}

	if err := filemanager.RemoveOrphanedIncludes(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	debug.Progressf("indexed %d file(s)", len(indexed))
	return nil
}
