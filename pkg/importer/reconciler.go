package importer

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/David-Botos/crm-import/pkg/model"
	"github.com/David-Botos/crm-import/pkg/store"
)

// TagReconciler maps tag names to ids for one run, creating missing tags.
// It is driven by the queue executor and is not safe for concurrent use.
type TagReconciler struct {
	store store.Store
	ids   map[string]int64
}

// NewTagReconciler creates a reconciler with an empty name cache
func NewTagReconciler(s store.Store) *TagReconciler {
	return &TagReconciler{
		store: s,
		ids:   make(map[string]int64),
	}
}

// Resolve returns the id of name, creating the tag on first use
func (r *TagReconciler) Resolve(ctx context.Context, name string) (int64, error) {
	if id, ok := r.ids[name]; ok {
		return id, nil
	}
	id, err := r.store.GetOrCreateTag(ctx, name)
	if err != nil {
		return 0, err
	}
	r.ids[name] = id
	return id, nil
}

// Reconcile resolves every name, stopping at the first failure
func (r *TagReconciler) Reconcile(ctx context.Context, names []string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	for _, name := range names {
		id, err := r.Resolve(ctx, name)
		if err != nil {
			return out, errors.Wrapf(err, "tag %q", name)
		}
		out[name] = id
	}
	return out, nil
}

// Operations returns, per tag, a resolve operation whose continuation links the
// tag to the entity. Failures of either step are passed to report and do not
// affect the other tags.
func (r *TagReconciler) Operations(kind model.Kind, entityID int64, tags []string, report func(tag string, err error)) []Operation {
	ops := make([]Operation, 0, len(tags))
	for _, tag := range tags {
		tag := tag
		var tagID int64

		ops = append(ops, Operation{
			Name: "resolve tag",
			Run: func(ctx context.Context) error {
				id, err := r.Resolve(ctx, tag)
				tagID = id
				return err
			},
			Done: func(err error) []Operation {
				if err != nil {
					report(tag, err)
					return nil
				}
				return []Operation{{
					Name: "link tag",
					Run: func(ctx context.Context) error {
						return r.store.LinkEntityTag(ctx, kind, entityID, tagID)
					},
					Done: func(err error) []Operation {
						if err != nil {
							report(tag, err)
						}
						return nil
					},
				}}
			},
		})
	}
	return ops
}
