package mocks

import (
	"context"
	"io"

	"github.com/airbusgeo/modis/internal/image"
	"github.com/airbusgeo/modis/internal/modis"
	"github.com/stretchr/testify/mock"
)

type ImageryService struct {
	mock.Mock
}

func (_m *ImageryService) FetchCatalog(ctx context.Context) (modis.Catalog, error) {
	ret := _m.Called(ctx)
	var r0 modis.Catalog
	if rf, ok := ret.Get(0).(func(context.Context) modis.Catalog); ok {
		r0 = rf(ctx)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(modis.Catalog)
	}
	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

func (_m *ImageryService) FetchTile(ctx context.Context, layer, date string, tile modis.Tile, enc modis.Encoding) ([]byte, error) {
	ret := _m.Called(ctx, layer, date, tile, enc)
	var r0 []byte
	if rf, ok := ret.Get(0).(func(context.Context, string, string, modis.Tile, modis.Encoding) []byte); ok {
		r0 = rf(ctx, layer, date, tile, enc)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}
	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, string, modis.Tile, modis.Encoding) error); ok {
		r1 = rf(ctx, layer, date, tile, enc)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

func (_m *ImageryService) FetchQuicklook(ctx context.Context, layer string, bbox [4]float64, date string, w io.Writer) error {
	ret := _m.Called(ctx, layer, bbox, date, w)
	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, [4]float64, string, io.Writer) error); ok {
		r0 = rf(ctx, layer, bbox, date, w)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

type Decoder struct {
	mock.Mock
}

func (_m *Decoder) Decode(data []byte, enc modis.Encoding, tile modis.Tile) (*image.Raster, error) {
	ret := _m.Called(data, enc, tile)
	var r0 *image.Raster
	if rf, ok := ret.Get(0).(func([]byte, modis.Encoding, modis.Tile) *image.Raster); ok {
		r0 = rf(data, enc, tile)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*image.Raster)
	}
	var r1 error
	if rf, ok := ret.Get(1).(func([]byte, modis.Encoding, modis.Tile) error); ok {
		r1 = rf(data, enc, tile)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

type Writer struct {
	mock.Mock
}

func (_m *Writer) Write(r *image.Raster, provenance []image.BandProvenance, path string) error {
	ret := _m.Called(r, provenance, path)
	var r0 error
	if rf, ok := ret.Get(0).(func(*image.Raster, []image.BandProvenance, string) error); ok {
		r0 = rf(r, provenance, path)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}
