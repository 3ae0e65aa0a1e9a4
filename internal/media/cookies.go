package media

import "os"

// Cookie files are probed in order; the first existing path wins. Absence is
// not an error, downloads simply run without site credentials.
var defaultCookiePaths = []string{
	"cookies.txt",
	"/app/cookies.txt",
}

func resolveCookiePath(candidates []string) string {
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
