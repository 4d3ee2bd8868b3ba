package pkgcache

// Reporter receives progress callbacks for a single get_or_fetch call,
// identified by index so a UI layer can attribute events from concurrent
// calls to the right row (§4.3 "Reporter contract").
type Reporter interface {
	OnValidateStart(index int, key BucketKey)
	OnValidateComplete(index int, key BucketKey, err error)
	OnDownloadStart(index int, key BucketKey)
	OnDownloadProgress(index int, key BucketKey, bytes, total int64)
	OnDownloadComplete(index int, key BucketKey, err error)
}

// NopReporter implements Reporter with no-ops; it is the default when no
// reporter is supplied.
type NopReporter struct{}

func (NopReporter) OnValidateStart(int, BucketKey)                 {}
func (NopReporter) OnValidateComplete(int, BucketKey, error)       {}
func (NopReporter) OnDownloadStart(int, BucketKey)                 {}
func (NopReporter) OnDownloadProgress(int, BucketKey, int64, int64) {}
func (NopReporter) OnDownloadComplete(int, BucketKey, error)       {}
