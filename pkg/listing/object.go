package listing

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/pkg/output"
	"github.com/3leaps/skybrowse/pkg/provider"
)

// ObjectIndex maps raw store entries into ObjectRecords.
//
// Unlike DirectoryIndex, store errors surface to the caller and no partial
// result is returned.
type ObjectIndex struct {
	lister
}

// NewObjectIndex creates an object index over p.
func NewObjectIndex(p provider.Provider, cfg Config) *ObjectIndex {
	return &ObjectIndex{lister: newLister(p, cfg)}
}

// WithLogger sets the logger used for debug output.
func (o *ObjectIndex) WithLogger(l *zap.Logger) *ObjectIndex {
	if l != nil {
		o.logger = l
	}
	return o
}

// WithWriter sets the writer that View reports object listing failures to.
func (o *ObjectIndex) WithWriter(w output.Writer) *ObjectIndex {
	o.writer = w
	return o
}

// List returns the objects directly under prefix in store order.
//
// A zero-byte key equal to prefix (a folder marker) is skipped.
func (o *ObjectIndex) List(ctx context.Context, container, prefix string) ([]ObjectRecord, error) {
	records := []ObjectRecord{}

	if dl, ok := o.delimiterLister(); ok {
		err := o.walkDelimited(ctx, dl, container, prefix, func(res *provider.ListWithDelimiterResult) {
			for _, obj := range res.Objects {
				if obj.Key == prefix {
					continue
				}
				records = append(records, newRecord(container, obj))
			}
		})
		if err != nil {
			return nil, err
		}
		return records, nil
	}

	err := o.walkFlat(ctx, container, prefix, func(res *provider.ListResult) {
		for _, obj := range res.Objects {
			if obj.Key == prefix || strings.Contains(obj.Key[len(prefix):], provider.DefaultDelimiter) {
				continue
			}
			records = append(records, newRecord(container, obj))
		}
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Expand returns every object beneath dir, recursively, for batch actions on
// a selected directory. Nested folder markers are included so that deleting
// a directory removes them too; the marker equal to dir is also included.
func (o *ObjectIndex) Expand(ctx context.Context, container, dir string) ([]ObjectRecord, error) {
	records := []ObjectRecord{}
	err := o.walkFlat(ctx, container, dir, func(res *provider.ListResult) {
		for _, obj := range res.Objects {
			records = append(records, newRecord(container, obj))
		}
	})
	if err != nil {
		o.logger.Debug("Directory expansion failed",
			zap.String("container", container),
			zap.String("directory", dir),
			zap.Error(err),
		)
		return nil, err
	}
	return records, nil
}

// IsFolderMarker reports whether r is a zero-byte placeholder for a directory.
func (r ObjectRecord) IsFolderMarker() bool {
	return strings.HasSuffix(r.ID, provider.DefaultDelimiter) && r.Size == 0
}
