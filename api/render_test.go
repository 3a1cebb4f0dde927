package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alwitt/goutils"
	"github.com/alwitt/halcyon/result"
	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestErrorRendering(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	uut := &handlerImpl{Component: goutils.Component{LogTags: log.Fields{"module": "api"}}}

	testCases := []struct {
		failure *result.Error
		status  int
		message string
	}{
		{result.Validation("Invalid colour"), http.StatusBadRequest, "Invalid colour"},
		{result.Decryption(), http.StatusBadRequest, result.DecryptionFailedMsg},
		{result.Authentication(), http.StatusUnauthorized, result.InvalidLoginMsg},
		{
			result.Upstream(errors.New("connection refused on 10.0.0.1")),
			http.StatusInternalServerError,
			result.UpstreamFailedMsg,
		},
	}

	for idx, testCase := range testCases {
		resp := httptest.NewRecorder()
		uut.writeError(resp, httptest.NewRequest(http.MethodGet, "/", nil), testCase.failure)
		assert.Equal(testCase.status, resp.Code, "case %d", idx)
		assert.Equal("application/json", resp.Header().Get("Content-Type"))
		assert.NotContains(resp.Body.String(), "10.0.0.1")

		var body ErrorResponse
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(testCase.message, body.Error, "case %d", idx)
	}
}
