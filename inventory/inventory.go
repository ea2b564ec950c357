// Package inventory is the encode-side collaborator of the coverage core: it
// parses inventory files, decides the base zoom and base dataset, and feeds
// the items to a coverage.Builder in order.
package inventory

import (
	"encoding/json"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/go-spatial/geom"
	"github.com/perimeterx/marshmallow"

	"github.com/pdok/tilecov/coverage"
	"github.com/pdok/tilecov/webmerc"
)

// A full-coverage item must reach at least this close to the Mercator
// latitude clamps to count as covering the whole world.
const fullCoverageLatTolerance = 0.001

// Item is one inventory entry: a dataset name, an inclusive WGS84 bounding
// box in degrees and the maximum zoom at which the dataset applies. min_lon
// above max_lon means the box crosses the antimeridian. Unknown keys of the
// entry are kept as dataset metadata.
type Item struct {
	Name     string                 `validate:"required" json:"name"`
	MinLon   *float64               `validate:"required" json:"min_lon"`
	MinLat   *float64               `validate:"required" json:"min_lat"`
	MaxLon   *float64               `validate:"required" json:"max_lon"`
	MaxLat   *float64               `validate:"required" json:"max_lat"`
	MaxZoom  int                    `default:"-1" validate:"gte=0,lte=30" json:"max_zoom"`
	Metadata map[string]interface{} `json:"-"`
}

func (item *Item) UnmarshalJSON(data []byte) error {
	err := defaults.Set(item)
	if err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, item, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}
	if len(specials) > 0 {
		item.Metadata = specials
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(item)
}

// Extent returns the bounding box as [minLon, minLat, maxLon, maxLat].
func (item *Item) Extent() geom.Extent {
	return geom.Extent{*item.MinLon, *item.MinLat, *item.MaxLon, *item.MaxLat}
}

// Entry returns the dataset entry this item refers to.
func (item *Item) Entry() coverage.DatasetEntry {
	return coverage.DatasetEntry{Name: item.Name, Metadata: item.Metadata}
}

func (item *Item) fullCoverage() bool {
	limit := webmerc.MaxLatitude - fullCoverageLatTolerance
	return *item.MaxLon-*item.MinLon >= 360 &&
		*item.MinLat <= -limit && *item.MaxLat >= limit
}

// Inventory is an ordered list of items. Order matters: later items override
// earlier ones where they overlap at the same zoom.
type Inventory []Item

// Parse reads an inventory from a JSON array of items. A malformed item fails
// the whole parse, with the item's position and name in the error; an item is
// never silently reduced to a partial rectangle.
func Parse(data []byte) (Inventory, error) {
	var rawItems []json.RawMessage
	if err := json.Unmarshal(data, &rawItems); err != nil {
		return nil, fmt.Errorf("%w: inventory is not a JSON array: %s", coverage.ErrMalformedInput, err)
	}
	inv := make(Inventory, len(rawItems))
	for i, rawItem := range rawItems {
		if err := json.Unmarshal(rawItem, &inv[i]); err != nil {
			return nil, fmt.Errorf("%w: item %d (%q): %s", coverage.ErrMalformedInput, i, inv[i].Name, err)
		}
	}
	return inv, nil
}

// BaseZoom decides the base zoom and base dataset for an inventory. An
// explicit override wins. Otherwise the full-coverage item with the highest
// max zoom (later items win ties) sets both. Without any full-coverage item
// the base zoom falls back to one below the smallest max zoom and there is no
// base dataset.
func (inv Inventory) BaseZoom(override *int) (zbase int, baseName string, err error) {
	if len(inv) == 0 {
		return 0, "", fmt.Errorf("%w: empty inventory", coverage.ErrMalformedInput)
	}

	if override != nil {
		zbase = *override
		for i := range inv {
			if inv[i].fullCoverage() && inv[i].MaxZoom <= zbase {
				baseName = inv[i].Name
			}
		}
		return zbase, baseName, nil
	}

	found := false
	for i := range inv {
		if !inv[i].fullCoverage() {
			continue
		}
		if !found || inv[i].MaxZoom >= zbase {
			zbase = inv[i].MaxZoom
			baseName = inv[i].Name
			found = true
		}
	}
	if found {
		return zbase, baseName, nil
	}

	zbase = inv[0].MaxZoom
	for i := range inv {
		if inv[i].MaxZoom < zbase {
			zbase = inv[i].MaxZoom
		}
	}
	return zbase - 1, "", nil
}

// Encode runs a whole encode pass over the inventory and returns the built
// structure.
func (inv Inventory) Encode(zbaseOverride *int) (*coverage.TileAvailabilityMap, error) {
	zbase, baseName, err := inv.BaseZoom(zbaseOverride)
	if err != nil {
		return nil, err
	}
	builder := coverage.NewBuilder(zbase)
	for i := range inv {
		if err := builder.AddItem(inv[i].Entry(), inv[i].Extent(), inv[i].MaxZoom); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	if baseName != "" {
		if err := builder.SetBase(baseName); err != nil {
			return nil, err
		}
	}
	return builder.Build(), nil
}
