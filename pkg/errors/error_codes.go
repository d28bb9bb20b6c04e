package errors

// Error codes grouped per component. The code identifies the exact failure
// site within its type; the ranges keep codes stable as components grow.
const (
	// Chapter normalizer (100-199)
	ErrBadTimeToken      = 100
	ErrTimeComponentHigh = 101
	ErrTitleCountExceeds = 102
	ErrOffsetsNotOrdered = 103

	// Filter-graph compiler (200-299)
	ErrBadColor        = 200
	ErrBadAlpha        = 201
	ErrUnknownScheme   = 202
	ErrTitleNeedsFont  = 203
	ErrBadSchemeFile   = 204
	ErrBadPosition     = 205

	// Probe (300-399)
	ErrProbeExec       = 300
	ErrProbeParse      = 301
	ErrNoVideoStream   = 302
	ErrNoDuration      = 303
	ErrFFmpegMissing   = 310
	ErrFFprobeMissing  = 311

	// Processor (400-499)
	ErrInputMissing     = 400
	ErrOutputExists     = 401
	ErrOutputDirCreate  = 402
	ErrStderrPipe       = 403
	ErrFFmpegStart      = 404
	ErrFFmpegExit       = 405
	ErrBadExtraParams   = 406
	ErrJobCancelled     = 407

	// Downloader (500-599)
	ErrDownloadRequest = 500
	ErrDownloadHTTP    = 501
	ErrDownloadWrite   = 502

	// Config (600-699)
	ErrEnvLoad = 600
)
