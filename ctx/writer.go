package ctx

import "net/http"

// responseWriter tracks the status and header state of the wrapped writer and
// refuses writes once the owning Request is closed.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	written     int64
	closed      bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if !w.wroteHeader {
		code := w.status
		if code == 0 {
			code = http.StatusOK
		}
		w.WriteHeader(code)
	}
	n, err := w.ResponseWriter.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the original writer.
func (w *responseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
