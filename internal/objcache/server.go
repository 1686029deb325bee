package objcache

import (
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	http3 "github.com/quic-go/quic-go/http3"
)

// Server serves and accepts cached object files over HTTP/3, keyed by the
// content address from Key. Objects are stored as plain files under dir;
// this is a build cache, not a database, and the corpus does not carry a
// database dependency this small a store would justify.
type Server struct {
	srv   *http3.Server
	pc    net.PacketConn
	addr  string
	dir   string
	close func() error
}

// NewServer creates a cache server rooted at dir, bound to addr (":0" for an
// ephemeral port).
func NewServer(addr, dir string, tlsCfg *tls.Config) *Server {
	s := &Server{addr: addr, dir: dir}

	mux := http.NewServeMux()
	mux.HandleFunc("/objects/", s.handleObject)

	s.srv = &http3.Server{Addr: addr, TLSConfig: tlsCfg, Handler: mux}

	return s
}

// Start begins serving and returns the bound address.
func (s *Server) Start() (string, error) {
	pc, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return "", err
	}

	s.pc = pc
	realAddr := pc.LocalAddr().String()

	done := make(chan struct{})

	go func() {
		_ = s.srv.Serve(pc)
		close(done)
	}()

	s.close = func() error {
		_ = pc.Close()

		select {
		case <-done:
		case <-time.After(time.Second):
		}

		return nil
	}

	return realAddr, nil
}

// Stop shuts the server down.
func (s *Server) Stop() error {
	if s.close != nil {
		return s.close()
	}

	return nil
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	key := filepath.Base(r.URL.Path)
	if key == "" || key == "." || key == "/" {
		http.Error(w, "missing object key", http.StatusBadRequest)
		return
	}

	path := filepath.Join(s.dir, key)

	switch r.Method {
	case http.MethodGet:
		f, err := os.Open(path)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer f.Close()

		io.Copy(w, f)
	case http.MethodPut:
		f, err := os.Create(path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer f.Close()

		if _, err := io.Copy(f, r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusCreated)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
