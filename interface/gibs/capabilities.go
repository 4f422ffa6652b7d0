package gibs

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/airbusgeo/modis/internal/log"
	"github.com/airbusgeo/modis/internal/modis"
	"github.com/airbusgeo/modis/internal/observability"
)

type capabilitiesDocument struct {
	XMLName xml.Name            `xml:"Capabilities"`
	Layers  []capabilitiesLayer `xml:"Contents>Layer"`
}

type capabilitiesLayer struct {
	Identifier     string   `xml:"Identifier"`
	Title          string   `xml:"Title"`
	LowerCorner    string   `xml:"WGS84BoundingBox>LowerCorner"`
	UpperCorner    string   `xml:"WGS84BoundingBox>UpperCorner"`
	Formats        []string `xml:"Format"`
	TileMatrixSets []string `xml:"TileMatrixSetLink>TileMatrixSet"`
}

// FetchCatalog downloads the capabilities of the tile service and returns the layers
// available in the GoogleMapsCompatible_Level9 tile matrix set.
func (c *Client) FetchCatalog(ctx context.Context) (modis.Catalog, error) {
	u := CapabilitiesURL(c.wmtsURL)
	buf := &bytes.Buffer{}
	if err := c.get(ctx, observability.EndpointCapabilities, u, buf); err != nil {
		return nil, fmt.Errorf("FetchCatalog: %w", err)
	}
	catalog, err := ParseCapabilities(ctx, buf)
	if err != nil {
		return nil, fmt.Errorf("FetchCatalog: %w", err)
	}
	log.Logger(ctx).Debug("catalog fetched", zap.String("url", u), zap.Int("layers", len(catalog)))
	return catalog, nil
}

// ParseCapabilities decodes a WMTS capabilities document.
// Layers of another tile matrix set, with an unsupported format or an invalid extent are skipped.
func ParseCapabilities(ctx context.Context, r io.Reader) (modis.Catalog, error) {
	var doc capabilitiesDocument
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("ParseCapabilities: %w", err)
	}

	catalog := modis.Catalog{}
	for _, l := range doc.Layers {
		if !hasTileMatrixSet(l, modis.TileMatrixSet) {
			continue
		}
		layer, err := l.descriptor()
		if err != nil {
			log.Logger(ctx).Debug("layer skipped", zap.String("layer", l.Identifier), zap.Error(err))
			continue
		}
		catalog[layer.Identifier] = layer
	}
	return catalog, nil
}

func hasTileMatrixSet(l capabilitiesLayer, tms string) bool {
	for _, t := range l.TileMatrixSets {
		if strings.TrimSpace(t) == tms {
			return true
		}
	}
	return false
}

func (l capabilitiesLayer) descriptor() (modis.LayerDescriptor, error) {
	layer := modis.LayerDescriptor{
		Identifier:    strings.TrimSpace(l.Identifier),
		Title:         strings.TrimSpace(l.Title),
		TileMatrixSet: modis.TileMatrixSet,
	}
	if layer.Identifier == "" {
		return layer, fmt.Errorf("missing identifier")
	}

	encodingFound := false
	for _, f := range l.Formats {
		if enc, err := modis.EncodingFromMimeType(strings.TrimSpace(f)); err == nil {
			layer.Encoding, encodingFound = enc, true
			break
		}
	}
	if !encodingFound {
		return layer, fmt.Errorf("unsupported formats %v", l.Formats)
	}

	lower, err := parseCorner(l.LowerCorner)
	if err != nil {
		return layer, fmt.Errorf("lower corner: %w", err)
	}
	upper, err := parseCorner(l.UpperCorner)
	if err != nil {
		return layer, fmt.Errorf("upper corner: %w", err)
	}
	layer.Extent = [4]float64{lower[0], lower[1], upper[0], upper[1]}
	return layer, nil
}

// parseCorner parses "lon lat"
func parseCorner(s string) ([2]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return [2]float64{}, fmt.Errorf("cannot parse %q as a corner", s)
	}
	var corner [2]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return [2]float64{}, fmt.Errorf("cannot parse %q as a corner: %w", s, err)
		}
		corner[i] = v
	}
	return corner, nil
}
