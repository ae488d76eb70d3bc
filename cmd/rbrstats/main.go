// Command rbrstats prints the grid and value distribution of an RBR raster.
package main

import (
	"flag"
	"fmt"
	"os"

	"burnscar/internal/burnmask"
	"burnscar/internal/geotiff"
	"burnscar/internal/rbr"
)

func main() {
	imagePath := flag.String("image", "", "Path to an RBR GeoTIFF (e.g. RBR_VH.tif)")
	threshold := flag.Float64("threshold", burnmask.DefaultThreshold, "Burn threshold to report coverage for")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: rbrstats -image <RBR.tif> [-threshold -0.2]")
		os.Exit(1)
	}

	band, grid, err := geotiff.ReadFloat(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read raster: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded %s\n", *imagePath)
	fmt.Printf("Grid: %s\n", grid)

	ratio := &rbr.Ratio{Width: band.Width, Height: band.Height, Data: band.Data, Valid: band.Valid}
	stats := rbr.Summarize(ratio)
	fmt.Printf("\nValid pixels: %d of %d\n", stats.Count, band.Len())
	if stats.Count == 0 {
		return
	}
	fmt.Printf("  min    %8.4f\n", stats.Min)
	fmt.Printf("  p5     %8.4f\n", stats.P5)
	fmt.Printf("  median %8.4f\n", stats.Median)
	fmt.Printf("  mean   %8.4f\n", stats.Mean)
	fmt.Printf("  p95    %8.4f\n", stats.P95)
	fmt.Printf("  max    %8.4f\n", stats.Max)

	below := 0
	for i, v := range band.Data {
		if band.Valid[i] && v <= *threshold {
			below++
		}
	}
	fmt.Printf("\nAt or below %.3f: %d pixels (%.1f%%)\n", *threshold, below,
		100*float64(below)/float64(stats.Count))
}
