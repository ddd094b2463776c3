package ceo

import (
	"slices"
	"sort"

	"github.com/sells-group/landcover-cli/internal/enrich"
	"github.com/sells-group/landcover-cli/internal/photos"
)

// Unit is a survey row addressable by AOI and plot.
type Unit interface {
	AOIKey() string
	PlotKey() string
}

// AOIs returns the distinct AOI numbers, numerically sorted.
func AOIs[T Unit](rows []T) []string {
	return distinct(rows, func(r T) string { return r.AOIKey() })
}

// PlotIDs returns the distinct plot IDs, numerically sorted.
func PlotIDs[T Unit](rows []T) []string {
	return distinct(rows, func(r T) string { return r.PlotKey() })
}

func distinct[T Unit](rows []T, key func(T) string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range rows {
		k := key(r)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return lessNatural(out[i], out[j]) })
	return out
}

// FilterAOI keeps the rows of one AOI.
func FilterAOI[T Unit](rows []T, aoi string) []T {
	aoi = normalizeID(aoi)
	return slices.DeleteFunc(slices.Clone(rows), func(r T) bool { return r.AOIKey() != aoi })
}

// FilterPlot keeps the rows of one plot. An empty plotID keeps everything.
func FilterPlot[T Unit](rows []T, plotID string) []T {
	if plotID == "" {
		return slices.Clone(rows)
	}
	plotID = normalizeID(plotID)
	return slices.DeleteFunc(slices.Clone(rows), func(r T) bool { return r.PlotKey() != plotID })
}

// SamplePoints converts SSU rows into enrichment input keyed by ObjectId.
func SamplePoints(ssu []SSU) []enrich.SamplePoint {
	out := make([]enrich.SamplePoint, len(ssu))
	for i, s := range ssu {
		out[i] = enrich.SamplePoint{ID: s.ObjectID, Lat: s.Lat, Lon: s.Lon, Label: s.LandCover}
	}
	return out
}

// Centroids indexes plot centers by plot ID. The first row of a plot wins.
func Centroids(psu []PSU) photos.CentroidIndex {
	idx := make(photos.CentroidIndex, len(psu))
	for _, p := range psu {
		if _, ok := idx[p.PlotID]; ok {
			continue
		}
		idx[p.PlotID] = photos.Centroid{PlotID: p.PlotID, Lat: p.CenterLat, Lon: p.CenterLon}
	}
	return idx
}
