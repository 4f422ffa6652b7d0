package gibs_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/airbusgeo/modis/interface/gibs"
	"github.com/airbusgeo/modis/internal/modis"
	"github.com/airbusgeo/modis/internal/observability"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type failingWriter struct {
	calls int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errors.New("no space left on device")
}

var _ = Describe("Client", func() {

	var (
		ctx    = context.Background()
		server *httptest.Server
		calls  int32

		lastRequest atomic.Value

		handlerToUse http.HandlerFunc
		optsToUse    []gibs.Option

		client *gibs.Client
	)

	BeforeEach(func() {
		atomic.StoreInt32(&calls, 0)
		optsToUse = nil
	})

	JustBeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			lastRequest.Store(r.URL.String())
			handlerToUse(w, r)
		}))
		var err error
		client, err = gibs.New(append([]gibs.Option{
			gibs.WithWMTSURL(server.URL + "/wmts"),
			gibs.WithWMSURL(server.URL + "/wms"),
			gibs.RetryDelay(time.Millisecond),
			gibs.WithMetrics(observability.New()),
		}, optsToUse...)...)
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("FetchCatalog", func() {
		var (
			returnedCatalog modis.Catalog
			returnedError   error
		)

		JustBeforeEach(func() {
			returnedCatalog, returnedError = client.FetchCatalog(ctx)
		})

		Context("with the capabilities document", func() {
			BeforeEach(func() {
				handlerToUse = func(w http.ResponseWriter, r *http.Request) {
					data, _ := os.ReadFile("testdata/WMTSCapabilities.xml")
					w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
					w.Write(data)
				}
			})
			It("it should only keep the supported layers", func() {
				Expect(returnedError).To(BeNil())
				Expect(lastRequest.Load()).To(Equal("/wmts/epsg3857/best/1.0.0/WMTSCapabilities.xml"))
				Expect(returnedCatalog).To(HaveLen(3))
				Expect(returnedCatalog).To(HaveKey("MODIS_Terra_CorrectedReflectance_TrueColor"))
				Expect(returnedCatalog).To(HaveKey("MODIS_Aqua_CorrectedReflectance_TrueColor"))
				Expect(returnedCatalog).To(HaveKey("Sea_Ice_Extent_Arctic"))
			})
			It("it should decode the layer descriptors", func() {
				terra := returnedCatalog["MODIS_Terra_CorrectedReflectance_TrueColor"]
				Expect(terra.Title).To(Equal("Corrected Reflectance (True Color, MODIS, Terra)"))
				Expect(terra.TileMatrixSet).To(Equal(modis.TileMatrixSet))
				Expect(terra.Encoding).To(Equal(modis.EncodingJPEG))
				Expect(terra.Extent).To(Equal([4]float64{-180, -85.051129, 180, 85.051129}))

				ice := returnedCatalog["Sea_Ice_Extent_Arctic"]
				Expect(ice.Encoding).To(Equal(modis.EncodingPNG))
				Expect(ice.Extent).To(Equal([4]float64{-180, 60, 180, 85.051129}))
			})
		})

		Context("when the service is unavailable", func() {
			BeforeEach(func() {
				handlerToUse = func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusServiceUnavailable)
				}
			})
			It("it should return a status error", func() {
				Expect(gibs.IsStatusError(returnedError)).To(BeTrue())
				Expect(atomic.LoadInt32(&calls)).To(Equal(int32(1)))
			})
		})

		Context("with a malformed document", func() {
			BeforeEach(func() {
				handlerToUse = func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte("<Capabilities><Contents>"))
				}
			})
			It("it should return an error", func() {
				Expect(returnedError).NotTo(BeNil())
				Expect(gibs.IsStatusError(returnedError)).To(BeFalse())
			})
		})
	})

	Describe("FetchTile", func() {
		var (
			tileToUse = modis.Tile{X: 311, Y: 224, Z: 9}

			returnedData  []byte
			returnedError error
		)

		JustBeforeEach(func() {
			returnedData, returnedError = client.FetchTile(ctx, "MODIS_Terra_CorrectedReflectance_TrueColor", "2019-04-25", tileToUse, modis.EncodingJPEG)
		})

		Context("with a tile", func() {
			BeforeEach(func() {
				handlerToUse = func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte("jpeg"))
				}
			})
			It("it should return the body", func() {
				Expect(returnedError).To(BeNil())
				Expect(lastRequest.Load()).To(Equal("/wmts/epsg3857/best/MODIS_Terra_CorrectedReflectance_TrueColor/default/2019-04-25/GoogleMapsCompatible_Level9/9/224/311.jpg"))
				Expect(returnedData).To(Equal([]byte("jpeg")))
			})
			It("it should cache the tile", func() {
				data, err := client.FetchTile(ctx, "MODIS_Terra_CorrectedReflectance_TrueColor", "2019-04-25", tileToUse, modis.EncodingJPEG)
				Expect(err).To(BeNil())
				Expect(data).To(Equal([]byte("jpeg")))
				Expect(atomic.LoadInt32(&calls)).To(Equal(int32(1)))
			})
		})

		Context("without cache", func() {
			BeforeEach(func() {
				optsToUse = []gibs.Option{gibs.WithTileCache(0)}
				handlerToUse = func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte("jpeg"))
				}
			})
			It("it should request the tile each time", func() {
				_, err := client.FetchTile(ctx, "MODIS_Terra_CorrectedReflectance_TrueColor", "2019-04-25", tileToUse, modis.EncodingJPEG)
				Expect(err).To(BeNil())
				Expect(atomic.LoadInt32(&calls)).To(Equal(int32(2)))
			})
		})

		Context("when the tile does not exist", func() {
			BeforeEach(func() {
				handlerToUse = func(w http.ResponseWriter, r *http.Request) {
					http.Error(w, "tile not found", http.StatusNotFound)
				}
			})
			It("it should return a status error with the body", func() {
				Expect(gibs.IsStatusError(returnedError)).To(BeTrue())
				Expect(returnedError.Error()).To(ContainSubstring("404"))
				Expect(returnedError.Error()).To(ContainSubstring("tile not found"))
			})
		})

		Context("when the service fails temporarily and retries are enabled", func() {
			BeforeEach(func() {
				optsToUse = []gibs.Option{gibs.MaxTries(3)}
				handlerToUse = func(w http.ResponseWriter, r *http.Request) {
					if atomic.LoadInt32(&calls) < 3 {
						w.WriteHeader(http.StatusBadGateway)
						return
					}
					w.Write([]byte("jpeg"))
				}
			})
			It("it should retry", func() {
				Expect(returnedError).To(BeNil())
				Expect(returnedData).To(Equal([]byte("jpeg")))
				Expect(atomic.LoadInt32(&calls)).To(Equal(int32(3)))
			})
		})

		Context("when the service fails permanently and retries are enabled", func() {
			BeforeEach(func() {
				optsToUse = []gibs.Option{gibs.MaxTries(3)}
				handlerToUse = func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusBadRequest)
				}
			})
			It("it should not retry", func() {
				Expect(gibs.IsStatusError(returnedError)).To(BeTrue())
				Expect(atomic.LoadInt32(&calls)).To(Equal(int32(1)))
			})
		})
	})

	Describe("FetchQuicklook", func() {
		var (
			buf           *bytes.Buffer
			returnedError error
		)

		JustBeforeEach(func() {
			buf = &bytes.Buffer{}
			returnedError = client.FetchQuicklook(ctx, "MODIS_Terra_CorrectedReflectance_TrueColor",
				[4]float64{38.671875, 20.632784250388017, 40.078125, 21.943045533438177}, "2019-04-25", buf)
		})

		Context("with a quicklook", func() {
			BeforeEach(func() {
				handlerToUse = func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte("quicklook"))
				}
			})
			It("it should stream the body", func() {
				Expect(returnedError).To(BeNil())
				u, err := url.Parse(lastRequest.Load().(string))
				Expect(err).To(BeNil())
				Expect(u.Path).To(Equal("/wms/epsg4326/best/wms.cgi"))
				q := u.Query()
				Expect(q.Get("REQUEST")).To(Equal("GetMap"))
				Expect(q.Get("LAYERS")).To(Equal("MODIS_Terra_CorrectedReflectance_TrueColor"))
				Expect(q.Get("WIDTH")).To(Equal("512"))
				Expect(q.Get("HEIGHT")).To(Equal("477"))
				Expect(q.Get("CRS")).To(Equal("CRS:84"))
				Expect(q.Get("TIME")).To(Equal("2019-04-25"))
				Expect(strings.Split(q.Get("BBOX"), ",")).To(HaveLen(4))
				Expect(buf.String()).To(Equal("quicklook"))
			})
		})

		Context("when the quicklook is not available", func() {
			BeforeEach(func() {
				handlerToUse = func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusBadRequest)
				}
			})
			It("it should return a status error", func() {
				Expect(gibs.IsStatusError(returnedError)).To(BeTrue())
				Expect(buf.Len()).To(Equal(0))
			})
		})

		Context("when the destination cannot be written", func() {
			BeforeEach(func() {
				optsToUse = []gibs.Option{gibs.MaxTries(3)}
				handlerToUse = func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte("quicklook"))
				}
			})
			It("it should return a write error and not retry", func() {
				w := &failingWriter{}
				err := client.FetchQuicklook(ctx, "MODIS_Terra_CorrectedReflectance_TrueColor",
					[4]float64{38.671875, 20.632784250388017, 40.078125, 21.943045533438177}, "2019-04-25", w)
				Expect(gibs.IsWriteError(err)).To(BeTrue())
				Expect(gibs.IsConnectionError(err)).To(BeFalse())
				Expect(err.Error()).To(ContainSubstring("no space left on device"))
				Expect(w.calls).To(Equal(1))
				// one call for the quicklook of the JustBeforeEach, one for this one
				Expect(atomic.LoadInt32(&calls)).To(Equal(int32(2)))
			})
		})
	})

	Describe("Connection errors", func() {
		BeforeEach(func() {
			handlerToUse = func(w http.ResponseWriter, r *http.Request) {}
		})
		It("it should return a connection error when the service is down", func() {
			server.Close()
			_, err := client.FetchTile(ctx, "MODIS_Terra_CorrectedReflectance_TrueColor", "2019-04-25", modis.Tile{Z: 0}, modis.EncodingJPEG)
			Expect(gibs.IsConnectionError(err)).To(BeTrue())
			Expect(gibs.IsStatusError(err)).To(BeFalse())
		})
	})
})
