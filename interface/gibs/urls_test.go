package gibs_test

import (
	"github.com/airbusgeo/modis/interface/gibs"
	"github.com/airbusgeo/modis/internal/modis"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Urls", func() {

	It("it should build the capabilities url", func() {
		Expect(gibs.CapabilitiesURL(gibs.DefaultWMTSURL)).To(Equal("https://gibs.earthdata.nasa.gov/wmts/epsg3857/best/1.0.0/WMTSCapabilities.xml"))
	})

	It("it should build a tile url", func() {
		u := gibs.TileURL(gibs.DefaultWMTSURL, "MODIS_Terra_CorrectedReflectance_TrueColor", "2019-04-25", modis.Tile{X: 311, Y: 224, Z: 9}, modis.EncodingJPEG)
		Expect(u).To(Equal("https://gibs.earthdata.nasa.gov/wmts/epsg3857/best/MODIS_Terra_CorrectedReflectance_TrueColor/default/2019-04-25/GoogleMapsCompatible_Level9/9/224/311.jpg"))
	})

	It("it should use the extension of the encoding", func() {
		u := gibs.TileURL("http://localhost:8080/", "Sea_Ice_Extent_Arctic", "2019-04-25", modis.Tile{X: 1, Y: 2, Z: 3}, modis.EncodingPNG)
		Expect(u).To(Equal("http://localhost:8080/epsg3857/best/Sea_Ice_Extent_Arctic/default/2019-04-25/GoogleMapsCompatible_Level9/3/2/1.png"))
	})

	Describe("QuicklookSize", func() {
		var (
			bboxToUse [4]float64

			returnedWidth, returnedHeight int
			returnedError                 error
		)

		JustBeforeEach(func() {
			returnedWidth, returnedHeight, returnedError = gibs.QuicklookSize(bboxToUse, gibs.QuicklookMaxSize)
		})

		Context("with a landscape bbox", func() {
			BeforeEach(func() {
				bboxToUse = [4]float64{38.671875, 20.632784250388017, 40.078125, 21.943045533438177}
			})
			It("it should return 512x477", func() {
				Expect(returnedError).To(BeNil())
				Expect(returnedWidth).To(Equal(512))
				Expect(returnedHeight).To(Equal(477))
			})
		})

		Context("with a portrait bbox", func() {
			BeforeEach(func() {
				bboxToUse = [4]float64{0, 0, 1, 2}
			})
			It("it should return 256x512", func() {
				Expect(returnedError).To(BeNil())
				Expect(returnedWidth).To(Equal(256))
				Expect(returnedHeight).To(Equal(512))
			})
		})

		Context("with a square bbox", func() {
			BeforeEach(func() {
				bboxToUse = [4]float64{0, 0, 1, 1}
			})
			It("it should return 512x512", func() {
				Expect(returnedError).To(BeNil())
				Expect(returnedWidth).To(Equal(512))
				Expect(returnedHeight).To(Equal(512))
			})
		})

		Context("with a flat bbox", func() {
			BeforeEach(func() {
				bboxToUse = [4]float64{0, 1, 1, 1}
			})
			It("it should return an error", func() {
				Expect(returnedError).NotTo(BeNil())
			})
		})
	})

	It("it should build a quicklook url", func() {
		u := gibs.QuicklookURL(gibs.DefaultWMSURL, "MODIS_Terra_CorrectedReflectance_TrueColor", [4]float64{38.671875, 20.632784250388017, 40.078125, 21.943045533438177}, "2019-04-25", 512, 477)
		Expect(u).To(Equal("https://gibs.earthdata.nasa.gov/wms/epsg4326/best/wms.cgi?SERVICE=WMS&REQUEST=GetMap" +
			"&LAYERS=MODIS_Terra_CorrectedReflectance_TrueColor&FORMAT=image/jpeg&WIDTH=512&HEIGHT=477&CRS=CRS:84" +
			"&BBOX=38.671875,20.632784250388017,40.078125,21.943045533438177&TIME=2019-04-25"))
	})
})
