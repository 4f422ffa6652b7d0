package gibs

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/airbusgeo/modis/internal/modis"
	"github.com/airbusgeo/modis/internal/utils"
)

const (
	DefaultWMTSURL = "https://gibs.earthdata.nasa.gov/wmts"
	DefaultWMSURL  = "https://gibs.earthdata.nasa.gov/wms"

	// QuicklookMaxSize is the size of the longest side of a quicklook
	QuicklookMaxSize = 512

	capabilitiesPath = "epsg3857/best/1.0.0/WMTSCapabilities.xml"
	wmsPath          = "epsg4326/best/wms.cgi"
)

// CapabilitiesURL returns the url of the WMTS capabilities document
func CapabilitiesURL(wmtsURL string) string {
	return utils.URLJoin(wmtsURL, capabilitiesPath)
}

// TileURL returns the WMTS url of a tile of layer for the date (YYYY-MM-DD)
func TileURL(wmtsURL, layer, date string, tile modis.Tile, enc modis.Encoding) string {
	return utils.URLJoin(wmtsURL, "epsg3857/best", url.PathEscape(layer), "default", date, modis.TileMatrixSet,
		strconv.Itoa(tile.Z), strconv.Itoa(tile.Y), strconv.Itoa(tile.X)+"."+enc.Extension())
}

// QuicklookSize returns the size of a quicklook of bbox, whose longest side is maxSize.
// The other side is truncated.
func QuicklookSize(bbox [4]float64, maxSize int) (int, int, error) {
	dx, dy := bbox[0]-bbox[2], bbox[1]-bbox[3]
	if dy == 0 || dx == 0 {
		return 0, 0, fmt.Errorf("quicklook of a degenerate bbox %v", bbox)
	}
	ratio := math.Abs(dx / dy)
	if ratio > 1 {
		return maxSize, int(float64(maxSize) / ratio), nil
	}
	return int(float64(maxSize) * ratio), maxSize, nil
}

// QuicklookURL returns the WMS GetMap url of a jpeg quicklook of layer over bbox (lon/lat) for the date
func QuicklookURL(wmsURL, layer string, bbox [4]float64, date string, width, height int) string {
	coords := make([]string, len(bbox))
	for i, c := range bbox {
		coords[i] = utils.F64ToS(c)
	}
	return utils.URLJoin(wmsURL, wmsPath) + "?SERVICE=WMS&REQUEST=GetMap" +
		"&LAYERS=" + url.QueryEscape(layer) +
		"&FORMAT=image/jpeg" +
		"&WIDTH=" + strconv.Itoa(width) +
		"&HEIGHT=" + strconv.Itoa(height) +
		"&CRS=CRS:84" +
		"&BBOX=" + strings.Join(coords, ",") +
		"&TIME=" + url.QueryEscape(date)
}
