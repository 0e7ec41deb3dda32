package ports

// FetchRecorder counts remote fetch outcomes by platform
type FetchRecorder interface {
	RemoteFetch(platform, outcome string)
}
