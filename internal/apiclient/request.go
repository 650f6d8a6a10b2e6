package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// RequestOptions — описание одного вызова.
//
// Body может быть:
//   - nil — без тела;
//   - []byte, string, io.Reader — уже сериализованное тело (Content-Type: application/json);
//   - *Multipart — multipart/form-data;
//   - любое другое значение — сериализуется в JSON.
type RequestOptions struct {
	Method  string
	Headers http.Header
	Query   url.Values
	Body    any
	// Anonymous — не подставлять токен (публичные эндпойнты); 401 такого
	// запроса не запускает refresh.
	Anonymous bool
}

// Multipart — тело multipart/form-data (загрузка файлов).
type Multipart struct {
	Fields map[string]string
	Files  []FilePart
}

type FilePart struct {
	Field    string
	FileName string
	Content  []byte
}

// encodedBody — тело, пригодное для повторной отправки после refresh.
type encodedBody struct {
	data        []byte
	contentType string
}

func encodeBody(body any) (*encodedBody, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return &encodedBody{data: b, contentType: "application/json"}, nil
	case string:
		return &encodedBody{data: []byte(b), contentType: "application/json"}, nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, err
		}
		return &encodedBody{data: data, contentType: "application/json"}, nil
	case *Multipart:
		return b.encode()
	case Multipart:
		return b.encode()
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		return &encodedBody{data: data, contentType: "application/json"}, nil
	}
}

func (m Multipart) encode() (*encodedBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}

	for _, f := range m.Files {
		part, err := w.CreateFormFile(f.Field, f.FileName)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.FileName, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return &encodedBody{data: buf.Bytes(), contentType: w.FormDataContentType()}, nil
}

func (b *encodedBody) reader() io.Reader {
	if b == nil {
		return nil
	}

	return bytes.NewReader(b.data)
}
