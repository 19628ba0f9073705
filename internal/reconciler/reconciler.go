// Package reconciler rehydrates UDFs that don't survive a process restart
// and sweeps orphaned physical reference tables: ref_* engine tables with
// no reference_tables catalog row, such as one whose upload stopped after
// the CSV load and before its metadata was recorded. Catalog rows whose
// physical object is missing are not touched, and UDFs are never swept.
package reconciler

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"webhookgw.io/gateway/internal/catalog"
	"webhookgw.io/gateway/internal/engine"
	"webhookgw.io/gateway/internal/installer"
	"webhookgw.io/gateway/internal/pkg/worker"
)

// Reconciler periodically reconciles engine state against catalog
// metadata.
type Reconciler struct {
	eng      *engine.Handle
	cat      *catalog.Catalog
	ins      *installer.Installer
	pool     *worker.Pool
	interval time.Duration
	zlog     *zap.Logger

	stop    chan struct{}
	done    chan struct{}
	started bool
}

// New builds a Reconciler. interval is the periodic sweep cadence; a
// zero/negative interval disables periodic sweeps (Rehydrate/Sweep still
// run once at Start).
func New(eng *engine.Handle, cat *catalog.Catalog, ins *installer.Installer, pool *worker.Pool, interval time.Duration, zlog *zap.Logger) *Reconciler {
	return &Reconciler{
		eng:      eng,
		cat:      cat,
		ins:      ins,
		pool:     pool,
		interval: interval,
		zlog:     zlog,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start rehydrates every catalog UDF into the engine, sweeps orphaned
// reference tables once, then (if interval > 0) launches a background
// ticker repeating the sweep.
func (r *Reconciler) Start(ctx context.Context) error {
	if err := r.RehydrateAll(ctx); err != nil {
		return err
	}
	if err := r.SweepOrphanReferenceTables(ctx); err != nil {
		return err
	}
	r.started = true
	if r.interval <= 0 {
		close(r.done)
		return nil
	}

	go r.loop(ctx)
	return nil
}

func (r *Reconciler) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			task := func(taskCtx context.Context) {
				if err := r.SweepOrphanReferenceTables(taskCtx); err != nil {
					r.zlog.Warn("reconciler sweep failed", zap.Error(err))
				}
			}
			if err := r.pool.Submit(ctx, task); err != nil {
				r.zlog.Warn("reconciler submit failed", zap.Error(err))
			}
		}
	}
}

// Shutdown stops the periodic loop and waits for it to exit. If Start never
// completed, there is no loop to wait for and Shutdown returns at once.
func (r *Reconciler) Shutdown() {
	close(r.stop)
	if r.started {
		<-r.done
	}
}

// RehydrateAll re-registers every catalog UDF against the engine. Safe to
// call repeatedly; each call replaces the previous in-process runtime.
func (r *Reconciler) RehydrateAll(ctx context.Context) error {
	udfs, err := r.cat.ListUDFs(ctx, "")
	if err != nil {
		return err
	}
	for _, u := range udfs {
		if err := r.ins.RehydrateUDF(ctx, u); err != nil {
			r.zlog.Warn("udf rehydration failed", zap.String("udf_id", u.ID), zap.String("physical_name", u.PhysicalName), zap.Error(err))
			continue
		}
	}
	return nil
}

// SweepOrphanReferenceTables drops every engine table named ref_* that has
// no corresponding reference_tables catalog row.
func (r *Reconciler) SweepOrphanReferenceTables(ctx context.Context) error {
	physicalNames, err := r.eng.ListObjects(ctx, "ref_")
	if err != nil {
		return err
	}
	if len(physicalNames) == 0 {
		return nil
	}

	tables, err := r.cat.ListReferenceTables(ctx, "")
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		known[t.PhysicalName] = struct{}{}
	}

	for _, name := range physicalNames {
		if !strings.HasPrefix(name, "ref_") {
			continue
		}
		if _, ok := known[name]; ok {
			continue
		}
		r.zlog.Info("dropping orphaned reference table", zap.String("physical_name", name))
		if err := r.eng.DropTable(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
