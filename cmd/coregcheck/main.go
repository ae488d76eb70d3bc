// Command coregcheck reports whether two rasters share a pixel grid.
package main

import (
	"flag"
	"fmt"
	"os"

	"burnscar/internal/geotiff"
	"burnscar/pkg/geometry"
)

func main() {
	a := flag.String("a", "", "Path to first raster")
	b := flag.String("b", "", "Path to second raster")
	flag.Parse()

	if *a == "" || *b == "" {
		fmt.Println("Usage: coregcheck -a <a.tif> -b <b.tif>")
		os.Exit(1)
	}

	ga, err := geotiff.ReadGrid(*a)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *a, err)
		os.Exit(1)
	}
	gb, err := geotiff.ReadGrid(*b)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *b, err)
		os.Exit(1)
	}

	for _, r := range []struct {
		path string
		grid geometry.Grid
	}{{*a, ga}, {*b, gb}} {
		e := r.grid.Extent()
		fmt.Printf("=== %s ===\n%s\n  transform %v\n  extent    (%.3f, %.3f) - (%.3f, %.3f)\n",
			r.path, r.grid, r.grid.Transform.GDAL(), e.MinX, e.MinY, e.MaxX, e.MaxY)
	}

	if diff := ga.Check(gb); diff != "" {
		fmt.Printf("\nNOT co-registered: %s\n", diff)
		os.Exit(2)
	}
	fmt.Println("\nCo-registered")
}
