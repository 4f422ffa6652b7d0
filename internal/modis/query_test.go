package modis_test

import (
	"time"

	"github.com/airbusgeo/modis/internal/modis"
	"github.com/twpayne/go-geom"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseQuery", func() {

	var (
		queryToUse string

		returnedQuery *modis.Query
		returnedError error
	)

	JustBeforeEach(func() {
		returnedQuery, returnedError = modis.ParseQuery([]byte(queryToUse))
	})

	var (
		itShouldNotReturnAnError = func() {
			It("it should not return an error", func() {
				Expect(returnedError).To(BeNil())
			})
		}
		itShouldReturnAnInputParametersError = func() {
			It("it should return an input parameters error", func() {
				Expect(modis.IsError(returnedError, modis.InputParametersError)).To(BeTrue())
			})
		}
	)

	Context("with a bbox and defaults", func() {
		BeforeEach(func() {
			queryToUse = `{"bbox": [38.6, 20.6, 40.1, 21.9], "imagery_layers": ["MODIS_Terra_CorrectedReflectance_TrueColor"]}`
		})
		itShouldNotReturnAnError()
		It("it should apply the defaults", func() {
			Expect(returnedQuery.Zoom).To(Equal(modis.DefaultZoomLevel))
			Expect(returnedQuery.Limit).To(Equal(modis.DefaultLimit))
			Expect(returnedQuery.Time).To(BeNil())
			Expect(returnedQuery.BBox).To(Equal([4]float64{38.6, 20.6, 40.1, 21.9}))
			_, ok := returnedQuery.AOI.(*geom.Polygon)
			Expect(ok).To(BeTrue())
		})
	})

	Context("with an intersects geometry and an interval", func() {
		BeforeEach(func() {
			queryToUse = `{
				"intersects": {"type": "Polygon", "coordinates": [[[39, 20.7], [39.9, 20.7], [39.9, 21.5], [39, 20.7]]]},
				"time": "2019-04-20T16:40:49+00:00/2019-04-25T17:45:49+00:00",
				"limit": 3,
				"zoom_level": 8,
				"imagery_layers": ["A", "B"]
			}`
		})
		itShouldNotReturnAnError()
		It("it should compute the bbox of the geometry", func() {
			Expect(returnedQuery.BBox).To(Equal([4]float64{39, 20.7, 39.9, 21.5}))
			Expect(returnedQuery.Zoom).To(Equal(8))
			Expect(returnedQuery.Limit).To(Equal(3))
			Expect(returnedQuery.Layers).To(Equal([]string{"A", "B"}))
			Expect(returnedQuery.Time.IsInterval).To(BeTrue())
			Expect(returnedQuery.Time.End.Equal(time.Date(2019, 4, 25, 17, 45, 49, 0, time.UTC))).To(BeTrue())
		})
	})

	Context("with a bbox crossing the antimeridian", func() {
		BeforeEach(func() {
			queryToUse = `{"bbox": [170, 10, -170, 20], "imagery_layers": ["A"]}`
		})
		itShouldNotReturnAnError()
		It("it should split the area of interest", func() {
			mp, ok := returnedQuery.AOI.(*geom.MultiPolygon)
			Expect(ok).To(BeTrue())
			Expect(mp.NumPolygons()).To(Equal(2))
		})
	})

	Context("without area of interest", func() {
		BeforeEach(func() {
			queryToUse = `{"imagery_layers": ["A"]}`
		})
		itShouldReturnAnInputParametersError()
	})

	Context("with both bbox and intersects", func() {
		BeforeEach(func() {
			queryToUse = `{"bbox": [0, 0, 1, 1], "intersects": {"type": "Point", "coordinates": [0.5, 0.5]}, "imagery_layers": ["A"]}`
		})
		itShouldReturnAnInputParametersError()
	})

	Context("without layers", func() {
		BeforeEach(func() {
			queryToUse = `{"bbox": [0, 0, 1, 1]}`
		})
		itShouldReturnAnInputParametersError()
	})

	Context("with a negative limit", func() {
		BeforeEach(func() {
			queryToUse = `{"bbox": [0, 0, 1, 1], "limit": -1, "imagery_layers": ["A"]}`
		})
		itShouldReturnAnInputParametersError()
	})

	Context("with a malformed time", func() {
		BeforeEach(func() {
			queryToUse = `{"bbox": [0, 0, 1, 1], "time": "yesterday", "imagery_layers": ["A"]}`
		})
		itShouldReturnAnInputParametersError()
	})

	Context("with a reversed interval", func() {
		BeforeEach(func() {
			queryToUse = `{"bbox": [0, 0, 1, 1], "time": "2019-04-25/2019-04-20", "imagery_layers": ["A"]}`
		})
		itShouldReturnAnInputParametersError()
	})

	Context("with malformed json", func() {
		BeforeEach(func() {
			queryToUse = `{"bbox": [0, 0, 1, 1]`
		})
		itShouldReturnAnInputParametersError()
	})
})
