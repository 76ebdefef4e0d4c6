package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/abgdnv/recordstore/internal/record/service"
)

// maxBodyBytes caps the create request body.
const maxBodyBytes = 1 << 20

var errInvalidBody = errors.New("invalid request body")

// decodeCreateRequest collects the create parameters from the query string and the body.
// Body values (JSON object or urlencoded form) override query values with the same name.
func decodeCreateRequest(w http.ResponseWriter, r *http.Request) (service.CreateRecordRequest, error) {
	params := make(map[string]service.Param)
	mergeValues(params, r.URL.Query())

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	switch mediaType {
	case "application/json":
		if err := mergeJSON(params, r.Body); err != nil {
			return service.CreateRecordRequest{}, err
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return service.CreateRecordRequest{}, fmt.Errorf("%w: %v", errInvalidBody, err)
		}
		mergeValues(params, r.PostForm)
	}

	return service.CreateRecordRequest{
		Type:      params["type"],
		Name:      params["name"],
		Price:     params["price"],
		Duration:  params["duration"],
		Frequency: params["frequency"],
	}, nil
}

func mergeValues(params map[string]service.Param, values url.Values) {
	for key := range values {
		params[key] = service.TextParam(values.Get(key))
	}
}

// mergeJSON decodes a single JSON object and rejects anything after it. Strings become
// text params, numbers keep their literal, null counts as absent and any other value
// is present but neither text nor numeric.
func mergeJSON(params map[string]service.Param, body io.Reader) error {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON object", errInvalidBody)
	}
	for key, raw := range fields {
		switch v := raw.(type) {
		case nil:
			delete(params, key)
		case string:
			params[key] = service.TextParam(v)
		case json.Number:
			params[key] = service.NumberParam(v.String())
		default:
			params[key] = service.Param{Present: true}
		}
	}
	return nil
}
