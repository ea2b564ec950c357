package inventory

import (
	"fmt"

	"github.com/go-spatial/geom/encoding/gpkg"

	"github.com/pdok/tilecov/coverage"
)

const wgs84SRSID = 4326

// FromGeoPackage derives an inventory from a GeoPackage: every feature table
// listed in gpkg_contents becomes one item carrying the table's bounding box,
// all at the given max zoom. The contents bounds must be in WGS84.
func FromGeoPackage(file string, maxZoom int) (Inventory, error) {
	handle, err := gpkg.Open(file)
	if err != nil {
		return nil, fmt.Errorf("error opening GeoPackage: %w", err)
	}
	defer handle.Close()

	query := `SELECT table_name, srs_id, min_x, min_y, max_x, max_y FROM gpkg_contents WHERE min_x IS NOT NULL;`
	rows, err := handle.Query(query)
	if err != nil {
		return nil, fmt.Errorf("error reading gpkg_contents: %w", err)
	}
	defer rows.Close()

	var inv Inventory
	for rows.Next() {
		var name string
		var srsID int
		var minX, minY, maxX, maxY float64
		if err = rows.Scan(&name, &srsID, &minX, &minY, &maxX, &maxY); err != nil {
			return nil, fmt.Errorf("error reading gpkg_contents row: %w", err)
		}
		if srsID != wgs84SRSID {
			return nil, fmt.Errorf("%w: table %q has srs %d, only %d (WGS84) bounds are supported",
				coverage.ErrMalformedInput, name, srsID, wgs84SRSID)
		}
		minLon, minLat, maxLon, maxLat := minX, minY, maxX, maxY
		inv = append(inv, Item{
			Name:    name,
			MinLon:  &minLon,
			MinLat:  &minLat,
			MaxLon:  &maxLon,
			MaxLat:  &maxLat,
			MaxZoom: maxZoom,
		})
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return inv, nil
}
