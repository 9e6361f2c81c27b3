package app

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
)

// hasEncoding проверяет наличие gzip в списке вида "gzip, deflate;q=0.5"
func hasEncoding(header, encoding string) bool {
	for _, item := range strings.Split(header, ",") {
		name, _, _ := strings.Cut(item, ";")
		if strings.EqualFold(strings.TrimSpace(name), encoding) {
			return true
		}
	}
	return false
}

func gzipMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hasEncoding(r.Header.Get("Content-Encoding"), "gzip") {
			// оборачиваем тело запроса в io.Reader с поддержкой декомпрессии
			cr, err := newCompressReader(r.Body)
			if err != nil {
				http.Error(w, "bad gzip body", http.StatusBadRequest)
				return
			}
			defer cr.Close()
			// меняем тело запроса на новое
			r.Body = cr
			r.Header.Del("Content-Encoding")
		}

		if hasEncoding(r.Header.Get("Accept-Encoding"), "gzip") {
			// оборачиваем writer
			cw := newCompressWriter(w)
			defer cw.Close()
			w = cw
		}

		h.ServeHTTP(w, r)
	})
}

// compressWriter сжимает только успешные ответы, редиректы и ошибки уходят как есть
type compressWriter struct {
	w           http.ResponseWriter
	zw          *gzip.Writer
	wroteHeader bool
	compress    bool
}

func newCompressWriter(w http.ResponseWriter) *compressWriter {
	return &compressWriter{w: w}
}

func (w *compressWriter) Header() http.Header {
	return w.w.Header()
}

func (w *compressWriter) Write(buf []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.compress {
		return w.zw.Write(buf)
	}
	return w.w.Write(buf)
}

func (w *compressWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if statusCode < 300 && statusCode >= 200 {
		w.compress = true
		w.zw = gzip.NewWriter(w.w)
		w.w.Header().Set("Content-Encoding", "gzip")
		w.w.Header().Add("Vary", "Accept-Encoding")
		w.w.Header().Del("Content-Length")
	}
	w.w.WriteHeader(statusCode)
}

func (w *compressWriter) Close() error {
	if !w.compress {
		return nil
	}
	return w.zw.Close()
}

// compressReader реализует интерфейс io.ReadCloser и позволяет прозрачно для сервера
// декомпрессировать получаемые от клиента данные
type compressReader struct {
	r  io.ReadCloser
	zr *gzip.Reader
}

func newCompressReader(r io.ReadCloser) (*compressReader, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}

	return &compressReader{
		r:  r,
		zr: zr,
	}, nil
}

func (r *compressReader) Close() error {
	if err := r.r.Close(); err != nil {
		return err
	}
	return r.zr.Close()
}

func (r *compressReader) Read(p []byte) (n int, err error) {
	return r.zr.Read(p)
}
