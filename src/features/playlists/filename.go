package playlists

import (
	"path"
	"regexp"
	"strings"

	"github.com/contre95/m3ushelf/src/music"
	"github.com/gosimple/unidecode"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// Sanitize creates an ASCII, header-safe filename.
func Sanitize(filename string) string {
	sanitized := unidecode.Unidecode(filename)
	sanitized = unsafeFilenameChars.ReplaceAllString(sanitized, " ")
	sanitized = repeatedSpaces.ReplaceAllString(sanitized, " ")
	sanitized = strings.Trim(sanitized, " .")
	if len(sanitized) > 200 {
		sanitized = sanitized[:200]
	}
	return sanitized
}

// DownloadFilename picks the name a playlist is served under. The original
// file name wins when it has a playlist extension.
func DownloadFilename(p *music.Playlist) string {
	if p.Filename != "" {
		switch strings.ToLower(path.Ext(p.Filename)) {
		case ".m3u", ".m3u8":
			if name := Sanitize(p.Filename); name != "" {
				return name
			}
		}
	}
	name := Sanitize(p.Name)
	if name == "" {
		name = "playlist"
	}
	return name + ".m3u"
}
