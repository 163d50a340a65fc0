package handler

import (
	"net/http"
	"os"
	"path"
)

// StaticFiles serves the browser client from dir. It shares no state with
// the relay core. Directories are only served through their index.html;
// anything else under a directory path is a 404, never a listing.
func StaticFiles(dir string) http.Handler {
	return http.FileServer(noListingFS{http.Dir(dir)})
}

// noListingFS hides directories that have no index.html.
type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	if info.IsDir() {
		index, err := n.fs.Open(path.Join(name, "index.html"))
		if err != nil {
			f.Close()
			return nil, os.ErrNotExist
		}
		index.Close()
	}

	return f, nil
}
