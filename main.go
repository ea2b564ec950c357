package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/muesli/reflow/truncate"
	"github.com/urfave/cli/v2"

	"github.com/pdok/tilecov/coverage"
	"github.com/pdok/tilecov/inventory"
)

const INVENTORY string = `inventory`
const SOURCEGPKG string = `sourceGpkg`
const GPKGMAXZOOM string = `gpkgMaxZoom`
const OUTPUT string = `output`
const ZBASE string = `zbase`
const COVERAGE string = `coverage`
const LON string = `lon`
const LAT string = `lat`

const metadataPrintWidth = 60

//nolint:funlen
func main() {
	app := cli.NewApp()
	app.Name = "tilecov"
	app.Usage = "Builds and queries tile availability maps: which dataset has the most detailed coverage where"
	app.Version = versioninfo.Short()

	app.Commands = []*cli.Command{
		{
			Name:  "encode",
			Usage: "Encode an inventory of coverage rectangles into a tile availability map",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    INVENTORY,
					Aliases: []string{"i"},
					Usage:   "Inventory JSON file (an array of items with name, bounds and max_zoom)",
					EnvVars: []string{strcase.ToScreamingSnake(INVENTORY)},
				},
				&cli.StringFlag{
					Name:    SOURCEGPKG,
					Aliases: []string{"s"},
					Usage:   "Source GPKG, every feature table's bounding box becomes an inventory item",
					EnvVars: []string{strcase.ToScreamingSnake(SOURCEGPKG)},
				},
				&cli.IntFlag{
					Name:    GPKGMAXZOOM,
					Usage:   "Max zoom for items derived from a source GPKG",
					Value:   14,
					EnvVars: []string{strcase.ToScreamingSnake(GPKGMAXZOOM)},
				},
				&cli.StringFlag{
					Name:     OUTPUT,
					Aliases:  []string{"o"},
					Usage:    "Target file for the encoded map",
					Required: true,
					EnvVars:  []string{strcase.ToScreamingSnake(OUTPUT)},
				},
				&cli.IntFlag{
					Name:    ZBASE,
					Usage:   "Base zoom override. Default: derived from a full-coverage item, or the minimum max_zoom",
					EnvVars: []string{strcase.ToScreamingSnake(ZBASE)},
				},
			},
			Action: encodeAction,
		},
		{
			Name:  "query",
			Usage: "Answer which dataset covers a point, and at what zoom",
			Flags: []cli.Flag{
				coverageFlag(),
				&cli.Float64Flag{
					Name:     LON,
					Usage:    "Longitude in degrees",
					Required: true,
					EnvVars:  []string{strcase.ToScreamingSnake(LON)},
				},
				&cli.Float64Flag{
					Name:     LAT,
					Usage:    "Latitude in degrees",
					Required: true,
					EnvVars:  []string{strcase.ToScreamingSnake(LAT)},
				},
			},
			Action: queryAction,
		},
		{
			Name:   "inspect",
			Usage:  "Summarize an encoded tile availability map",
			Flags:  []cli.Flag{coverageFlag()},
			Action: inspectAction,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func coverageFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     COVERAGE,
		Aliases:  []string{"c"},
		Usage:    "Encoded tile availability map file",
		Required: true,
		EnvVars:  []string{strcase.ToScreamingSnake(COVERAGE)},
	}
}

func encodeAction(c *cli.Context) error {
	var inv inventory.Inventory
	var err error
	switch {
	case c.String(INVENTORY) != "" && c.String(SOURCEGPKG) != "":
		return fmt.Errorf("give either an inventory file or a source GPKG, not both")
	case c.String(INVENTORY) != "":
		data, readErr := os.ReadFile(c.String(INVENTORY))
		if readErr != nil {
			return readErr
		}
		inv, err = inventory.Parse(data)
	case c.String(SOURCEGPKG) != "":
		inv, err = inventory.FromGeoPackage(c.String(SOURCEGPKG), c.Int(GPKGMAXZOOM))
	default:
		return fmt.Errorf("give either an inventory file or a source GPKG")
	}
	if err != nil {
		return err
	}

	var zbaseOverride *int
	if c.IsSet(ZBASE) {
		zbase := c.Int(ZBASE)
		zbaseOverride = &zbase
	}

	tam, err := inv.Encode(zbaseOverride)
	if err != nil {
		return err
	}
	data, err := json.Marshal(tam)
	if err != nil {
		return err
	}
	err = os.WriteFile(c.String(OUTPUT), data, 0o644)
	if err != nil {
		return err
	}
	log.Printf("encoded %d items into %d datasets, zoom %d..%d, %s",
		len(inv), len(tam.Datasets), tam.ZBase, tam.ZMax, c.String(OUTPUT))
	return nil
}

func queryAction(c *cli.Context) error {
	index, err := loadIndex(c.String(COVERAGE))
	if err != nil {
		return err
	}
	zoom, datasetID := index.DatasetHere(c.Float64(LON), c.Float64(LAT))
	dataset, ok := index.Dataset(datasetID)
	if !ok {
		fmt.Printf("zoom %d, no dataset\n", zoom)
		return nil
	}
	fmt.Printf("zoom %d, dataset %s\n", zoom, dataset.Name)
	return nil
}

func inspectAction(c *cli.Context) error {
	index, err := loadIndex(c.String(COVERAGE))
	if err != nil {
		return err
	}
	fmt.Printf("format %v, zoom %d..%d\n", coverage.Format, index.BaseZoom(), index.MaxZoom())
	for id := coverage.DatasetID(0); ; id++ {
		dataset, ok := index.Dataset(id)
		if !ok {
			break
		}
		fmt.Printf("  dataset %d: %s%s\n", id, dataset.Name, formatMetadata(dataset.Metadata))
	}
	for _, stat := range index.LevelStats() {
		fmt.Printf("  zoom %d: %d rows, %d intervals\n", stat.Zoom, stat.Rows, stat.Intervals)
	}
	return nil
}

func loadIndex(file string) (*coverage.Index, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var tam coverage.TileAvailabilityMap
	err = json.Unmarshal(data, &tam)
	if err != nil {
		return nil, err
	}
	return coverage.NewIndex(&tam)
}

func formatMetadata(metadata map[string]interface{}) string {
	if len(metadata) == 0 {
		return ""
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return " " + truncate.StringWithTail(string(encoded), metadataPrintWidth, "...")
}
