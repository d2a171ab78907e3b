package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// MaxJSONBody bounds JSON request bodies.
const MaxJSONBody = 1 << 20

// ParseInput fills r.PostForm from a urlencoded, multipart or JSON body so
// handlers can read every submission with r.PostFormValue. JSON scalars are
// stringified; true becomes "1" and false or null become "". Nested values
// are ignored. Calling it again is a no-op.
func ParseInput(r *http.Request) error {
	if mediaType(r) != "application/json" {
		return parseForm(r)
	}
	if len(r.PostForm) > 0 {
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return err
	}

	var body map[string]any
	err := json.NewDecoder(io.LimitReader(r.Body, MaxJSONBody)).Decode(&body)
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return err
	}

	values := make(url.Values, len(body))
	for k, v := range body {
		switch v := v.(type) {
		case string:
			values.Set(k, v)
		case float64:
			values.Set(k, strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			if v {
				values.Set(k, "1")
			} else {
				values.Set(k, "")
			}
		case nil:
			values.Set(k, "")
		}
	}

	r.PostForm = values
	for k, vs := range values {
		r.Form[k] = append(vs, r.Form[k]...)
	}
	return nil
}
