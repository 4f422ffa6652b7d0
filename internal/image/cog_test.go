package image_test

import (
	"bytes"
	goimage "image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/modis/internal/image"
	"github.com/airbusgeo/modis/internal/modis"
	"github.com/airbusgeo/modis/internal/utils/affine"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func pngTile(c color.RGBA) []byte {
	img := goimage.NewRGBA(goimage.Rect(0, 0, modis.TileSize, modis.TileSize))
	for y := 0; y < modis.TileSize; y++ {
		for x := 0; x < modis.TileSize; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	buf := &bytes.Buffer{}
	Expect(png.Encode(buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("TileDecoder", func() {

	var (
		workDir string
		tile    = modis.Tile{X: 311, Y: 224, Z: 9}

		dataToUse []byte

		returnedRaster *image.Raster
		returnedError  error
	)

	BeforeEach(func() {
		var err error
		workDir, err = os.MkdirTemp("", "decoder")
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		os.RemoveAll(workDir)
	})

	JustBeforeEach(func() {
		returnedRaster, returnedError = image.NewTileDecoder(workDir).Decode(dataToUse, modis.EncodingPNG, tile)
	})

	Context("with a png tile", func() {
		BeforeEach(func() {
			dataToUse = pngTile(color.RGBA{R: 10, G: 20, B: 30, A: 255})
		})
		It("it should decode the bands", func() {
			Expect(returnedError).To(BeNil())
			Expect(returnedRaster.NBands()).To(Equal(3))
			Expect(returnedRaster.Width).To(Equal(modis.TileSize))
			Expect(returnedRaster.Height).To(Equal(modis.TileSize))
			Expect(returnedRaster.At(0, 100, 100)).To(Equal(uint8(10)))
			Expect(returnedRaster.At(1, 100, 100)).To(Equal(uint8(20)))
			Expect(returnedRaster.At(2, 100, 100)).To(Equal(uint8(30)))
		})
		It("it should georeference the tile", func() {
			bounds := returnedRaster.Bounds()
			expected := tile.MercatorBounds()
			for i := range bounds {
				Expect(math.Abs(bounds[i] - expected[i])).To(BeNumerically("<", 1e-6))
			}
		})
		It("it should remove its temporary files", func() {
			entries, err := os.ReadDir(workDir)
			Expect(err).To(BeNil())
			Expect(entries).To(BeEmpty())
		})
	})

	Context("with a corrupted tile", func() {
		BeforeEach(func() {
			dataToUse = []byte("<html>Service unavailable</html>")
		})
		It("it should return an error", func() {
			Expect(returnedError).NotTo(BeNil())
		})
	})
})

var _ = Describe("RasterWriter", func() {

	var (
		workDir string
		path    string

		rasterToUse     *image.Raster
		provenanceToUse []image.BandProvenance

		returnedError error
	)

	BeforeEach(func() {
		var err error
		workDir, err = os.MkdirTemp("", "writer")
		Expect(err).To(BeNil())
		path = filepath.Join(workDir, "out.tif")

		// 2x2 tiles of web mercator zoom 9
		tile := modis.Tile{X: 311, Y: 224, Z: 9}
		b := tile.MercatorBounds()
		size := b[2] - b[0]
		rasterToUse = image.NewRaster(6, 512, 512, *affine.FromBounds([4]float64{b[0], b[1] - size, b[2] + size, b[3]}, 512, 512))
		for i, band := range rasterToUse.Bands {
			for j := range band {
				band[j] = uint8(10 * (i + 1))
			}
		}
		provenanceToUse, err = image.MakeBandProvenance([]image.LayerBands{
			{Layer: "MODIS_Terra_CorrectedReflectance_TrueColor", Count: 3},
			{Layer: "MODIS_Aqua_CorrectedReflectance_TrueColor", Count: 3},
		}, 6)
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		os.RemoveAll(workDir)
	})

	JustBeforeEach(func() {
		returnedError = image.NewRasterWriter().Write(rasterToUse, provenanceToUse, path)
	})

	Context("with a two layers raster", func() {
		It("it should write a valid COG", func() {
			Expect(returnedError).To(BeNil())
			ds, err := image.OpenCOG(path)
			Expect(err).To(BeNil())
			defer ds.Close()

			Expect(ds.Structure().NBands).To(Equal(6))
			Expect(ds.Structure().SizeX).To(Equal(512))
			Expect(ds.Structure().SizeY).To(Equal(512))
		})
		It("it should tag the bands", func() {
			ds, err := godal.Open(path)
			Expect(err).To(BeNil())
			defer ds.Close()

			Expect(image.ReadProvenance(ds)).To(Equal(provenanceToUse))
			bands := ds.Bands()
			Expect(bands[0].ColorInterp()).To(Equal(godal.CIRed))
			Expect(bands[1].ColorInterp()).To(Equal(godal.CIGreen))
			Expect(bands[2].ColorInterp()).To(Equal(godal.CIBlue))
			Expect(bands[3].ColorInterp()).To(Equal(godal.CIUndefined))
			Expect(bands[5].ColorInterp()).To(Equal(godal.CIUndefined))
		})
		It("it should georeference the raster", func() {
			ds, err := godal.Open(path)
			Expect(err).To(BeNil())
			defer ds.Close()

			gt, err := ds.GeoTransform()
			Expect(err).To(BeNil())
			for i := range gt {
				Expect(math.Abs(gt[i] - rasterToUse.Transform[i])).To(BeNumerically("<", 1e-6))
			}
			Expect(ds.SpatialRef().AuthorityCode("PROJCS")).To(Equal("3857"))

			data := make([]uint8, 512*512)
			Expect(ds.Bands()[4].Read(0, 0, data, 512, 512)).To(Succeed())
			Expect(data[1000]).To(Equal(uint8(50)))
		})
	})

	Context("with missing provenance", func() {
		BeforeEach(func() {
			provenanceToUse = provenanceToUse[:3]
		})
		It("it should return an error", func() {
			Expect(returnedError).NotTo(BeNil())
		})
	})
})
