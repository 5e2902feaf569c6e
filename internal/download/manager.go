package download

import (
	"context"
	"fmt"
	"path"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/khinsider-downloader/internal/audio"
	"github.com/handiism/khinsider-downloader/internal/config"
	"github.com/handiism/khinsider-downloader/internal/http"
	ioutils "github.com/handiism/khinsider-downloader/internal/io"
	"github.com/handiism/khinsider-downloader/internal/khinsider"
	"github.com/handiism/khinsider-downloader/internal/model"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Fetcher is the network side of the pipeline. *http.Client implements it.
type Fetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
	Get(ctx context.Context, url string) ([]byte, error)
	Download(ctx context.Context, url string, sink http.FileSink, onProgress func(written, total int64)) (string, error)
}

// Manager coordinates album downloads.
type Manager struct {
	settings     *config.Settings
	logger       *zap.Logger
	tagger       *audio.Tagger
	playlist     *audio.PlaylistCreator
	imageService *ioutils.ImageService

	// newFetcher is called once per album; the album's tracks share the
	// returned client.
	newFetcher func() Fetcher

	receivedBytes   int64
	totalFiles      int32
	downloadedFiles int32

	onProgress func(ProgressEvent)
}

// NewManager creates a new download Manager. Settings are expected to be
// validated. logger and onProgress may be nil.
func NewManager(settings *config.Settings, logger *zap.Logger, onProgress func(ProgressEvent)) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		settings:     settings,
		logger:       logger,
		tagger:       audio.NewTagger(audio.DefaultTagConfig()),
		playlist:     audio.NewPlaylistCreator(settings.Playlist(), settings.M3UExtended),
		imageService: ioutils.NewImageService(),
		onProgress:   onProgress,
	}
	m.newFetcher = func() Fetcher {
		return http.NewClient(settings.ToClientOptions(logger.Named("http")))
	}
	return m
}

// DownloadAlbums downloads every album concurrently. A failing album never
// stops the others. Repeated URLs are downloaded once. The returned error
// combines the error of every album that was not committed and is nil when
// all of them were.
func (m *Manager) DownloadAlbums(ctx context.Context, urls []string) (*model.BatchOutcome, error) {
	urls = uniqueURLs(urls)
	outcome := &model.BatchOutcome{Albums: make([]*model.AlbumOutcome, len(urls))}

	var g errgroup.Group
	g.SetLimit(limit(m.settings.MaxConcurrentAlbumsDownload))

	for i, albumURL := range urls {
		g.Go(func() error {
			album := &model.AlbumOutcome{URL: albumURL}
			if err := safely(func() error {
				album = m.DownloadAlbum(ctx, albumURL)
				return nil
			}); err != nil {
				m.logger.Error("album task crashed", zap.String("album_url", albumURL), zap.Error(err))
				album.Unexpected = true
				album.Err = err
			}
			outcome.Albums[i] = album
			return nil
		})
	}
	_ = g.Wait()

	return outcome, outcome.Err()
}

// uniqueURLs drops repeated URLs, keeping the first occurrence.
func uniqueURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	unique := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}
	return unique
}

// DownloadAlbum downloads one album and either commits its output or
// removes everything written for it.
//
// Tracks are downloaded concurrently and a failing track does not cancel
// the others. Any track failure discards the album. Failures of a known
// kind are logged and combined into the outcome error; any other failure
// marks the outcome Unexpected and is the only error reported.
func (m *Manager) DownloadAlbum(ctx context.Context, albumURL string) *model.AlbumOutcome {
	outcome := &model.AlbumOutcome{URL: albumURL}
	log := m.logger.With(zap.String("album_url", albumURL))
	client := m.newFetcher()

	m.progress(ProgressEvent{Message: fmt.Sprintf("Fetching album info: %s", albumURL), Level: LevelVerbose})
	doc, err := client.FetchDocument(ctx, albumURL)
	if err != nil {
		m.albumFailed(log, outcome, err)
		return outcome
	}

	name, err := khinsider.AlbumName(doc)
	if err != nil {
		m.albumFailed(log, outcome, model.NewExtractionError(albumURL, err))
		return outcome
	}
	album := model.NewAlbum(albumURL, name)
	outcome.Name = name
	log = log.With(zap.String("album", name))

	sink, err := ioutils.NewSink(m.settings.Format(), m.settings.OutputDirectory, album.DirName())
	if err != nil {
		m.albumFailed(log, outcome, model.WithAlbum(model.NewWriteError(album.DirName(), err), name))
		return outcome
	}

	if count, err := khinsider.TrackCount(doc); err != nil {
		log.Warn("could not read track count", zap.Error(err))
	} else {
		album.DeclaredTracks = count
		outcome.TrackCount = count
		log.Info("found album", zap.Int("tracks", count))
	}

	links := khinsider.TrackLinks(doc)
	if len(links) == 0 {
		m.discard(log, sink)
		m.albumFailed(log, outcome, model.NewNoTracksFoundError(albumURL, name))
		return outcome
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Found album: %s (%d tracks)", name, len(links)), Level: LevelInfo})

	for i, link := range links {
		album.Tracks = append(album.Tracks, model.NewTrack(album, i+1, link.Title, link.Href))
	}
	if url, ok := khinsider.CoverArtURL(doc, albumURL); ok {
		album.CoverArtURL = url
	}

	cover := m.fetchCoverArt(ctx, log, client, album)
	outcome.Tracks = m.downloadTracks(ctx, client, sink, album, cover.forTags)

	var expected, unexpected []error
	for _, t := range outcome.Tracks {
		if t.Err == nil {
			continue
		}
		err := model.WithAlbum(t.Err, name)
		if isExpected(err) {
			expected = append(expected, err)
		} else {
			unexpected = append(unexpected, err)
		}
	}

	if len(expected) > 0 || len(unexpected) > 0 {
		m.discard(log, sink)
		for _, err := range expected {
			log.Warn("track failed", zap.Error(err))
			m.progress(ProgressEvent{Message: err.Error(), Level: LevelError})
		}
		if len(unexpected) > 0 {
			for _, err := range unexpected {
				log.Error("unexpected error while downloading album", zap.Error(err))
				m.progress(ProgressEvent{Message: err.Error(), Level: LevelError})
			}
			outcome.Unexpected = true
			outcome.Err = multierr.Combine(unexpected...)
		} else {
			outcome.Err = multierr.Combine(expected...)
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Discarded %s, %d of %d tracks failed", name, len(expected)+len(unexpected), len(links)), Level: LevelWarning})
		return outcome
	}

	if cover.forFolder != nil {
		if err := writeFile(sink, cover.fileName, cover.forFolder); err != nil {
			log.Warn("could not save cover art", zap.Error(err))
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error saving cover art for %s: %v", name, err), Level: LevelWarning})
		}
	}

	if m.settings.CreatePlaylist {
		content := m.playlist.CreatePlaylist(album)
		if err := writeFile(sink, m.playlist.FileName(album), []byte(content)); err != nil {
			log.Warn("could not create playlist", zap.Error(err))
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
		}
	}

	if err := sink.Commit(); err != nil {
		m.discard(log, sink)
		m.albumFailed(log, outcome, model.WithAlbum(model.NewWriteError(album.DirName(), err), name))
		return outcome
	}

	outcome.Committed = true
	log.Info("album downloaded", zap.Int("tracks", len(links)))
	m.progress(ProgressEvent{Message: fmt.Sprintf("Successfully downloaded album: %s", name), Level: LevelSuccess})
	return outcome
}

func (m *Manager) downloadTracks(ctx context.Context, client Fetcher, sink ioutils.Sink, album *model.Album, artwork []byte) []model.TrackOutcome {
	results := make([]model.TrackOutcome, len(album.Tracks))
	atomic.AddInt32(&m.totalFiles, int32(len(album.Tracks)))

	var g errgroup.Group
	g.SetLimit(limit(m.settings.MaxConcurrentTracksDownload))

	for i, track := range album.Tracks {
		res := &results[i]
		res.Number = track.Number
		res.PageURL = track.PageURL
		g.Go(func() error {
			res.Err = safely(func() error {
				return m.downloadTrack(ctx, client, sink, track, artwork, res)
			})
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// downloadTrack fetches the track page, picks the audio link and streams
// the file into sink. Fetch and download errors are returned unchanged.
func (m *Manager) downloadTrack(ctx context.Context, client Fetcher, sink ioutils.Sink, track *model.Track, artwork []byte, res *model.TrackOutcome) error {
	pageURL, err := khinsider.ResolveURL(track.Album.URL, track.PageURL)
	if err != nil {
		return model.NewNoLinkFoundError(track.PageURL, err)
	}
	track.PageURL = pageURL
	res.PageURL = pageURL

	doc, err := client.FetchDocument(ctx, pageURL)
	if err != nil {
		return err
	}

	audioURL, err := khinsider.AudioLink(doc, pageURL, m.settings.PreferFlac)
	if err != nil {
		return model.NewNoLinkFoundError(pageURL, err)
	}
	track.AudioURL = audioURL
	res.AudioURL = audioURL

	var written int64
	name, err := client.Download(ctx, audioURL, sink, func(n, _ int64) {
		atomic.AddInt64(&m.receivedBytes, n-written)
		written = n
	})
	if err != nil {
		return err
	}
	track.FileName = name
	res.FileName = name
	res.Bytes = written
	atomic.AddInt32(&m.downloadedFiles, 1)

	if m.settings.ModifyTags && track.Extension() == khinsider.LossyExtension {
		if err := m.tagger.SaveTags(sink.Path(name), track, artwork); err != nil {
			m.logger.Warn("could not tag file", zap.String("file", name), zap.Error(err))
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error tagging %s: %v", name, err), Level: LevelWarning})
		}
	}

	m.logger.Debug("track downloaded", zap.String("file", name), zap.Int64("bytes", written))
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", name), Level: LevelVerbose})
	return nil
}

type coverArt struct {
	fileName  string
	forFolder []byte
	forTags   []byte
}

// fetchCoverArt downloads the album image when the settings ask for it.
// Failures only produce warnings.
func (m *Manager) fetchCoverArt(ctx context.Context, log *zap.Logger, client Fetcher, album *model.Album) coverArt {
	var cover coverArt
	inTags := m.settings.ModifyTags && m.settings.SaveCoverArtInTags
	if !album.HasCoverArt() || (!m.settings.SaveCoverArtInFolder && !inTags) {
		return cover
	}

	raw, err := client.Get(ctx, album.CoverArtURL)
	if err != nil {
		log.Warn("could not download cover art", zap.Error(err))
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading cover art for %s: %v", album.Name, err), Level: LevelWarning})
		return cover
	}
	atomic.AddInt64(&m.receivedBytes, int64(len(raw)))

	maxSize := m.settings.CoverArtMaxSize
	if m.settings.SaveCoverArtInFolder {
		toJPEG := m.settings.ConvertCoverArtToJPG
		data, err := m.imageService.PrepareCoverArt(ctx, raw, maxSize, toJPEG)
		if err != nil {
			log.Warn("could not process cover art", zap.Error(err))
		} else {
			cover.forFolder = data
			cover.fileName = coverFileName(album.CoverArtURL, toJPEG || maxSize > 0)
		}
	}
	if inTags {
		data, err := m.imageService.PrepareCoverArt(ctx, raw, maxSize, true)
		if err != nil {
			log.Warn("could not process cover art for tags", zap.Error(err))
		} else {
			cover.forTags = data
		}
	}
	return cover
}

func coverFileName(coverURL string, jpeg bool) string {
	ext := ".jpg"
	if !jpeg {
		if e := strings.ToLower(path.Ext(coverURL)); e != "" && len(e) <= 5 {
			ext = e
		}
	}
	return "cover" + ext
}

func writeFile(sink ioutils.Sink, name string, data []byte) error {
	f, err := sink.Create(name)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = sink.Remove(name)
		return err
	}
	return f.Close()
}

func (m *Manager) discard(log *zap.Logger, sink ioutils.Sink) {
	if err := sink.Discard(); err != nil {
		log.Error("could not remove partial output", zap.String("output", sink.Name()), zap.Error(err))
	}
}

func (m *Manager) albumFailed(log *zap.Logger, outcome *model.AlbumOutcome, err error) {
	outcome.Err = err
	if isExpected(err) {
		log.Warn("album failed", zap.Error(err))
	} else {
		log.Error("album failed", zap.Error(err))
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s: %v", outcome.URL, err), Level: LevelError})
}

// isExpected reports whether err is an operational failure the pipeline
// knows how to handle. Untyped errors and extraction errors reaching the
// album level are not.
func isExpected(err error) bool {
	kind, ok := model.KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case model.KindTransport, model.KindNoLinkFound, model.KindWrite, model.KindNoTracksFound:
		return true
	case model.KindExtraction:
		return false
	default:
		return false
	}
}

// safely runs fn and turns a panic into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}

// limit maps a configured concurrency to errgroup's convention, where a
// negative limit means unlimited.
func limit(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}

// GetProgress returns current download progress. The file total grows as
// tracklists are parsed.
func (m *Manager) GetProgress() (received int64, filesReceived, filesTotal int32) {
	return atomic.LoadInt64(&m.receivedBytes),
		atomic.LoadInt32(&m.downloadedFiles), atomic.LoadInt32(&m.totalFiles)
}

// ParseInputURLs extracts the http(s) URLs of a multi-line input, one per
// line, ignoring anything else.
func ParseInputURLs(input string) []string {
	var urls []string
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			urls = append(urls, line)
		}
	}
	return urls
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
