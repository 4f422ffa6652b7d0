package modis_test

import (
	"errors"
	"fmt"

	"github.com/airbusgeo/modis/internal/modis"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("FetchError", func() {

	It("it should prefix the message with the kind of error", func() {
		err := modis.NewInputParametersError("zoom_level must be in [0, %d]", 9)
		Expect(err.Error()).To(Equal("InputParametersError: zoom_level must be in [0, 9]"))
	})

	It("it should wrap the cause", func() {
		cause := errors.New("connection refused")
		err := fmt.Errorf("fetch: %w", modis.NewAPIConnectionError(cause, "failed to get merged image"))
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(modis.IsError(err, modis.APIConnectionError)).To(BeTrue())
		Expect(modis.IsError(err, modis.InputParametersError)).To(BeFalse())
		Expect(err.Error()).To(Equal("fetch: APIConnectionError: failed to get merged image: connection refused"))
	})

	It("it should split the details of invalid layers", func() {
		err := modis.NewInvalidLayersError([]string{"A", "B"}, []string{"POLYGON ((1 0, 1 1, 0 1, 0 0, 1 0))"})
		ferr, ok := modis.AsError(err, modis.InputParametersError)
		Expect(ok).To(BeTrue())
		Expect(ferr.InvalidNames()).To(Equal([]string{"A", "B"}))
		Expect(ferr.InvalidGeometries()).To(Equal([]string{"POLYGON ((1 0, 1 1, 0 1, 0 0, 1 0))"}))
		Expect(ferr.Details()).To(HaveLen(3))
	})

	It("it should map the kinds of error to exit codes", func() {
		Expect(modis.ExitCode(modis.NewInputParametersError("bad"))).To(Equal(modis.ExitCodeInputParameters))
		Expect(modis.ExitCode(modis.NewAPIConnectionError(nil, "down"))).To(Equal(modis.ExitCodeAPIConnection))
		Expect(modis.ExitCode(modis.NewQuicklookError(nil, "404"))).To(Equal(modis.ExitCodeError))
		Expect(modis.ExitCode(errors.New("other"))).To(Equal(modis.ExitCodeError))
	})
})

var _ = Describe("Encoding", func() {
	It("it should parse MIME types", func() {
		enc, err := modis.EncodingFromMimeType("image/jpeg")
		Expect(err).To(BeNil())
		Expect(enc).To(Equal(modis.EncodingJPEG))
		Expect(enc.Extension()).To(Equal("jpg"))

		enc, err = modis.EncodingFromMimeType("image/png")
		Expect(err).To(BeNil())
		Expect(enc).To(Equal(modis.EncodingPNG))
		Expect(enc.Extension()).To(Equal("png"))
		Expect(enc.MimeType()).To(Equal("image/png"))
	})

	It("it should reject other formats", func() {
		_, err := modis.EncodingFromMimeType("application/vnd.mapbox-vector-tile")
		Expect(err).NotTo(BeNil())
		_, err = modis.EncodingFromMimeType("image/tiff")
		Expect(err).NotTo(BeNil())
	})
})
