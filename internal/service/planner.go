package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-file-guard/internal/model"
	"go-file-guard/internal/storage"
)

// Planner computes the dry-run effect of a request without touching anything.
// A plan is produced fresh on every submit and never cached: the filesystem
// may change between calls.
type Planner struct {
	store storage.Storage
}

func NewPlanner(store storage.Storage) *Planner {
	return &Planner{store: store}
}

// Plan validates the request shape and walks the affected paths. Malformed
// requests (unknown kind, paths outside the allowed roots) return
// ErrInvalidRequest; conditions that make the operation pointless or unsafe
// (missing source, occupied destination) come back as a fatal preview so the
// attempt is still recorded.
func (p *Planner) Plan(req model.OperationRequest) (*model.Preview, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown operation kind %q", model.ErrInvalidRequest, req.Kind)
	}
	if req.ConfirmationMode != "" && !req.ConfirmationMode.Valid() {
		return nil, fmt.Errorf("%w: unknown confirmation mode %q", model.ErrInvalidRequest, req.ConfirmationMode)
	}
	if req.Kind != model.KindMkdir && req.SourcePath == "" {
		return nil, fmt.Errorf("%w: source path is required for %s", model.ErrInvalidRequest, req.Kind)
	}
	if req.Kind.NeedsDestination() && req.DestPath == "" {
		return nil, fmt.Errorf("%w: destination path is required for %s", model.ErrInvalidRequest, req.Kind)
	}

	pv := &model.Preview{
		Kind:       req.Kind,
		SourcePath: req.SourcePath,
		DestPath:   req.DestPath,
		Files:      []model.PreviewFile{},
	}

	if req.SourcePath != "" {
		if _, err := p.store.Resolve(req.SourcePath); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidRequest, err)
		}
	}
	if req.DestPath != "" {
		if _, err := p.store.Resolve(req.DestPath); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidRequest, err)
		}
	}

	switch req.Kind {
	case model.KindMkdir:
		p.planMkdir(pv)
	case model.KindDelete:
		p.planSourceWalk(pv)
	case model.KindCopy, model.KindMove:
		p.planSourceWalk(pv)
		if !pv.Fatal {
			p.planDestination(pv, req.Kind)
		}
	}

	return pv, nil
}

func (p *Planner) planMkdir(pv *model.Preview) {
	if _, err := p.store.Stat(pv.DestPath); err == nil {
		pv.Fatal = true
		pv.Warnings = append(pv.Warnings, fmt.Sprintf("path already exists: %s", pv.DestPath))
		return
	} else if !os.IsNotExist(err) {
		pv.Fatal = true
		pv.Warnings = append(pv.Warnings, fmt.Sprintf("cannot inspect destination: %v", err))
		return
	}

	pv.Files = append(pv.Files, model.PreviewFile{Path: pv.DestPath})
	pv.FileCount = 1
}

func (p *Planner) planSourceWalk(pv *model.Preview) {
	info, err := p.store.Stat(pv.SourcePath)
	if os.IsNotExist(err) {
		pv.Fatal = true
		pv.Warnings = append(pv.Warnings, fmt.Sprintf("source does not exist: %s", pv.SourcePath))
		return
	}
	if err != nil {
		pv.Fatal = true
		pv.Warnings = append(pv.Warnings, fmt.Sprintf("cannot inspect source: %v", err))
		return
	}

	if !info.IsDir() {
		pv.Files = append(pv.Files, model.PreviewFile{Path: pv.SourcePath, Size: info.Size()})
		pv.FileCount = 1
		pv.TotalBytes = info.Size()
		return
	}

	p.walkDir(pv, pv.SourcePath)
}

func (p *Planner) walkDir(pv *model.Preview, dir string) {
	entries, err := p.store.ReadDir(dir)
	if err != nil {
		pv.Warnings = append(pv.Warnings, fmt.Sprintf("unreadable directory: %s", dir))
		return
	}

	for _, entry := range entries {
		child := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			p.walkDir(pv, child)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			pv.Warnings = append(pv.Warnings, fmt.Sprintf("unreadable file: %s", child))
			continue
		}

		pv.Files = append(pv.Files, model.PreviewFile{Path: child, Size: info.Size()})
		pv.FileCount++
		pv.TotalBytes += info.Size()
	}
}

func (p *Planner) planDestination(pv *model.Preview, kind model.OperationKind) {
	if _, err := p.store.Stat(pv.DestPath); err == nil {
		// Occupied destinations warn rather than abort: the gate forces an
		// explicit approval and the user decides whether to overwrite.
		pv.Warnings = append(pv.Warnings, fmt.Sprintf("destination already exists: %s", pv.DestPath))
	} else if !os.IsNotExist(err) {
		pv.Fatal = true
		pv.Warnings = append(pv.Warnings, fmt.Sprintf("cannot inspect destination: %v", err))
		return
	}

	if isSubPath(pv.SourcePath, pv.DestPath) {
		pv.Fatal = true
		pv.Warnings = append(pv.Warnings, "destination is inside the source")
		return
	}

	if kind == model.KindMove {
		srcResolved, srcErr := p.store.Resolve(pv.SourcePath)
		dstResolved, dstErr := p.store.Resolve(pv.DestPath)
		if srcErr == nil && dstErr == nil {
			srcRoot, _ := p.store.RootFor(srcResolved)
			dstRoot, _ := p.store.RootFor(dstResolved)
			if srcRoot != dstRoot {
				pv.Warnings = append(pv.Warnings,
					"source and destination are under different roots; move will copy then delete")
			}
		}
	}
}

func isSubPath(parent string, child string) bool {
	parent = filepath.Clean(parent)
	child = filepath.Clean(child)
	return child == parent || strings.HasPrefix(child, parent+string(filepath.Separator))
}
