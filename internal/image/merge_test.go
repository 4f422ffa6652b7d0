package image_test

import (
	"github.com/airbusgeo/modis/internal/image"
	"github.com/airbusgeo/modis/internal/modis"
	"github.com/airbusgeo/modis/internal/utils/affine"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// filledRaster returns a raster of nbands x size x size at (ox, oy) with a resolution of 1, filled with v
func filledRaster(nbands, size int, ox, oy float64, v uint8) *image.Raster {
	r := image.NewRaster(nbands, size, size, *affine.NewAffine(ox, 1, 0, oy, 0, -1))
	for _, b := range r.Bands {
		for i := range b {
			b[i] = v
		}
	}
	return r
}

var _ = Describe("Merge", func() {

	var (
		rastersToUse []*image.Raster

		returnedRaster *image.Raster
		returnedError  error
	)

	JustBeforeEach(func() {
		returnedRaster, returnedError = image.Merge(rastersToUse)
	})

	var (
		itShouldNotReturnAnError = func() {
			It("it should not return an error", func() {
				Expect(returnedError).To(BeNil())
			})
		}
		itShouldReturnAnError = func() {
			It("it should return an error", func() {
				Expect(returnedError).NotTo(BeNil())
			})
		}
	)

	Context("with side by side rasters", func() {
		BeforeEach(func() {
			rastersToUse = []*image.Raster{filledRaster(3, 4, 0, 4, 1), filledRaster(3, 4, 4, 4, 2)}
		})
		itShouldNotReturnAnError()
		It("it should cover the union of the extents", func() {
			Expect(returnedRaster.Width).To(Equal(8))
			Expect(returnedRaster.Height).To(Equal(4))
			Expect(returnedRaster.NBands()).To(Equal(3))
			Expect(returnedRaster.Bounds()).To(Equal([4]float64{0, 0, 8, 4}))
			Expect(returnedRaster.At(0, 3, 0)).To(Equal(uint8(1)))
			Expect(returnedRaster.At(2, 4, 3)).To(Equal(uint8(2)))
		})
	})

	Context("with overlapping rasters", func() {
		BeforeEach(func() {
			rastersToUse = []*image.Raster{filledRaster(1, 4, 0, 4, 10), filledRaster(1, 4, 2, 2, 20)}
		})
		itShouldNotReturnAnError()
		It("it should keep the samples of the first raster", func() {
			Expect(returnedRaster.Width).To(Equal(6))
			Expect(returnedRaster.Height).To(Equal(6))
			// overlap
			Expect(returnedRaster.At(0, 3, 3)).To(Equal(uint8(10)))
			// second raster only
			Expect(returnedRaster.At(0, 5, 5)).To(Equal(uint8(20)))
			// not covered
			Expect(returnedRaster.At(0, 5, 0)).To(Equal(uint8(image.NoData)))
			Expect(returnedRaster.At(0, 0, 5)).To(Equal(uint8(image.NoData)))
		})
	})

	Context("with overlapping rasters in the reverse order", func() {
		BeforeEach(func() {
			rastersToUse = []*image.Raster{filledRaster(1, 4, 2, 2, 20), filledRaster(1, 4, 0, 4, 10)}
		})
		It("it should keep the samples of the first raster", func() {
			Expect(returnedRaster.At(0, 3, 3)).To(Equal(uint8(20)))
		})
	})

	Context("with a first raster having nodata samples", func() {
		BeforeEach(func() {
			first := filledRaster(1, 4, 0, 4, 10)
			first.Bands[0][0] = image.NoData
			rastersToUse = []*image.Raster{first, filledRaster(1, 4, 0, 4, 20)}
		})
		It("it should fill them with the next raster", func() {
			Expect(returnedRaster.At(0, 0, 0)).To(Equal(uint8(20)))
			Expect(returnedRaster.At(0, 1, 0)).To(Equal(uint8(10)))
		})
	})

	Context("without raster", func() {
		BeforeEach(func() {
			rastersToUse = nil
		})
		itShouldReturnAnError()
		It("it should return an input parameters error", func() {
			Expect(modis.IsError(returnedError, modis.InputParametersError)).To(BeTrue())
		})
	})

	Context("with different band counts", func() {
		BeforeEach(func() {
			rastersToUse = []*image.Raster{filledRaster(3, 4, 0, 4, 1), filledRaster(1, 4, 4, 4, 2)}
		})
		itShouldReturnAnError()
	})

	Context("with different resolutions", func() {
		BeforeEach(func() {
			rastersToUse = []*image.Raster{filledRaster(1, 4, 0, 4, 1), image.NewRaster(1, 4, 4, *affine.NewAffine(4, 2, 0, 4, 0, -2))}
		})
		itShouldReturnAnError()
	})
})

var _ = Describe("Combine", func() {

	var (
		mosaicsToUse []image.LayerMosaic

		returnedRaster *image.Raster
		returnedError  error
	)

	JustBeforeEach(func() {
		returnedRaster, returnedError = image.Combine(mosaicsToUse)
	})

	Context("with two layers of slightly different sizes", func() {
		BeforeEach(func() {
			a := filledRaster(3, 513, 0, 512, 1)
			b := filledRaster(3, 512, 10, 512, 2)
			mosaicsToUse = []image.LayerMosaic{{Layer: "A", Raster: a}, {Layer: "B", Raster: b}}
		})
		It("it should stack the bands in layer order", func() {
			Expect(returnedError).To(BeNil())
			Expect(returnedRaster.NBands()).To(Equal(6))
			Expect(returnedRaster.At(0, 0, 0)).To(Equal(uint8(1)))
			Expect(returnedRaster.At(5, 511, 511)).To(Equal(uint8(2)))
		})
		It("it should trim to a multiple of the tile size", func() {
			Expect(returnedRaster.Width).To(Equal(512))
			Expect(returnedRaster.Height).To(Equal(512))
			Expect(returnedRaster.Width % modis.TileSize).To(Equal(0))
		})
		It("it should use the transform of the first layer", func() {
			Expect(returnedRaster.Transform).To(Equal(*affine.NewAffine(0, 1, 0, 512, 0, -1)))
		})
	})

	Context("with mosaics smaller than a tile", func() {
		BeforeEach(func() {
			mosaicsToUse = []image.LayerMosaic{{Layer: "A", Raster: filledRaster(1, 255, 0, 255, 1)}}
		})
		It("it should return an error", func() {
			Expect(returnedError).NotTo(BeNil())
		})
	})

	Context("without mosaic", func() {
		BeforeEach(func() {
			mosaicsToUse = nil
		})
		It("it should return an error", func() {
			Expect(returnedError).NotTo(BeNil())
		})
	})
})

var _ = Describe("MakeBandProvenance", func() {

	It("it should describe every band once", func() {
		provenance, err := image.MakeBandProvenance([]image.LayerBands{{Layer: "A", Count: 3}, {Layer: "B", Count: 3}}, 6)
		Expect(err).To(BeNil())
		Expect(provenance).To(Equal([]image.BandProvenance{
			{Band: 1, Layer: "A", SourceBand: 1},
			{Band: 2, Layer: "A", SourceBand: 2},
			{Band: 3, Layer: "A", SourceBand: 3},
			{Band: 4, Layer: "B", SourceBand: 1},
			{Band: 5, Layer: "B", SourceBand: 2},
			{Band: 6, Layer: "B", SourceBand: 3},
		}))
	})

	It("it should describe the first bands only", func() {
		provenance, err := image.MakeBandProvenance([]image.LayerBands{{Layer: "A", Count: 1}, {Layer: "B", Count: 4}}, 3)
		Expect(err).To(BeNil())
		Expect(provenance).To(HaveLen(3))
		Expect(provenance[2]).To(Equal(image.BandProvenance{Band: 3, Layer: "B", SourceBand: 2}))
	})

	It("it should not describe more bands than available", func() {
		_, err := image.MakeBandProvenance([]image.LayerBands{{Layer: "A", Count: 3}}, 4)
		Expect(err).NotTo(BeNil())
	})
})
