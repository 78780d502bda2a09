package testutil

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// Upload is a file part of a multipart form
type Upload struct {
	Field    string
	Filename string
	Content  []byte
}

// MultipartBody encodes fields and an optional upload as a multipart form
func MultipartBody(t testing.TB, fields map[string]string, upload *Upload) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if upload != nil {
		part, err := w.CreateFormFile(upload.Field, upload.Filename)
		require.NoError(t, err)
		_, err = part.Write(upload.Content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

// FileHeader returns the parsed header for content as if it had been uploaded
func FileHeader(t testing.TB, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body, contentType := MultipartBody(t, nil, &Upload{Field: "picture", Filename: filename, Content: content})
	req, err := http.NewRequest(http.MethodPost, "/", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	require.NoError(t, req.ParseMultipartForm(32<<20))

	return req.MultipartForm.File["picture"][0]
}
