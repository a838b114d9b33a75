package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client against CardDAV servers.
var UserAgent = "CardSync/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "CardSync"
	AppID             = "com.github.imlich.cardsync"
	KeyringService    = "com.github.imlich.cardsync"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	DatabaseFileName  = "contacts.db"
	SettingsFileName  = "config.yaml"

	// CacheIDSeparator joins the account name and the collection path into
	// the address book cache ID.
	CacheIDSeparator = ":"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for sensitive files like logs and the contact cache.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagConfig       = "config"
	FlagOnce         = "once"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescConfig   = "Path to the YAML settings file"
	FlagDescOnce     = "Run a single synchronization pass and exit"
	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort      = "18080"
	DefaultSyncMin   = 60
	DefaultLeapYear  = 2000          // Leap year fallback for dates like --02-29
	UIDSalt          = "cardsync-v1-" // Salt for deterministic calendar UID generation
	DisabledInterval = 0
)

// -----------------------------------------------------------------------------
// Standards: vCard
// -----------------------------------------------------------------------------

const (
	// VCardVersion is stamped on cards created from scratch. Version 3.0 keeps
	// the grouped X-ABLABEL extension scheme understood by the widest range of
	// CardDAV servers and Apple-lineage clients.
	VCardVersion = "3.0"

	// Vendor extension properties.
	PropLabel  = "X-ABLABEL"                // free-form label for a property group
	PropShowAs = "X-ABSHOWAS"               // individual vs. company display hint
	PropABKind = "X-ADDRESSBOOKSERVER-KIND" // pre-RFC6350 group marker
	KindGroup  = "group"

	// Vendor extension parameters.
	ParamServiceType = "X-SERVICE-TYPE"
	ParamEncoding    = "ENCODING"

	EncodingBinary = "b"
	ValueBinary    = "binary"
	ValueURI       = "uri"
	TypeHome       = "HOME"

	// LabelMarkerPrefix/Suffix wrap labels written by Apple address books,
	// e.g. "_$!<Spouse>!$_". The wrapper is stripped on read.
	LabelMarkerPrefix = "_$!<"
	LabelMarkerSuffix = ">!$_"

	// SchemeUnknownIM is the IMPP URI scheme used when a subtype does not map
	// to any known messaging scheme and is not itself a valid scheme token.
	SchemeUnknownIM = "x-unknown"

	// TimestampLayout is the REV stamp format (UTC).
	TimestampLayout = "2006-01-02T15:04:05Z"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar (birthday feed)
// -----------------------------------------------------------------------------

const (
	ICalVersion   = "2.0"
	ICalProdid    = "-//CardSync//Birthday Feed//EN"
	ICalCalName   = "Birthdays"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "cardsync"

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	DefaultICalRefresh = 1 * time.Hour
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	// Date layouts used for parsing birthday fields.
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	MinPort = 1
	MaxPort = 65535

	// MaxPhotoBytes caps a single downloaded contact photo.
	MaxPhotoBytes = 10 << 20

	// UID Generation
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%d@%s"

	ExtVCF = ".vcf"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout        = 30 * time.Second
	ShutdownTimeout    = 5 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ServerIdleTimeout  = 60 * time.Second
	RetryAfterSeconds  = "10"
	AllowedMethods     = "GET, HEAD"
	SchemeHTTP         = "http"
	SchemeHTTPS        = "https"
	RouteRoot          = "/"
	RouteBirthdays     = "/birthdays.ics"
	AddrSeparator      = ":"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrSettingsLoad      = "failed to load settings"
	ErrNoAccounts        = "configuration error: no accounts defined"
	ErrAccountURLEmpty   = "configuration error: account URL is empty"
	ErrStoreOpen         = "failed to open contact cache"
	ErrDiscover          = "carddav discovery failed"
	ErrListAddressBooks  = "failed to list address books"
	ErrListObjects       = "failed to list address objects"
	ErrPutObject         = "failed to store address object"
	ErrDeleteObject      = "failed to delete address object"
	ErrGroupNameRequired = "conversion error: group contact requires a name"
	ErrLabelPersist      = "failed to persist custom label"
	ErrLabelLoad         = "failed to load custom labels"
	ErrPhotoResolver     = "no photo resolver bound to this contact"
	ErrPhotoFetch        = "failed to fetch contact photo"
	ErrServerStartup     = "server startup failed"
	ErrServerShutdown    = "server shutdown failed"
	ErrPortRequired      = "server port is required"
	ErrInvalidURL        = "invalid URL structure"
	ErrProtocol          = "unsupported protocol scheme (http/https only)"
	ErrICalEncode        = "failed to encode iCalendar data"
	ErrDateParse         = "unable to parse date"
	ErrRecordDecode      = "failed to decode cached record"
	ErrLogFile           = "failed to open log file"
	ErrCacheDir          = "could not determine user cache dir"
	ErrCreateDir         = "could not create app cache dir"
	ErrAppFailed         = "application failed unexpectedly"
	ErrWriteResp         = "failed to write response body"
	ErrKeyringGet        = "password retrieval failed"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Fallbacks & Defaults
// -----------------------------------------------------------------------------

const (
	// FallbackDisplayName is used when no usable name can be derived from a
	// contact record at all.
	FallbackDisplayName = "Unknown"

	FormatBirthdaySummary      = "Birthday: %s"
	FormatBirthdaySummaryAge   = "Birthday: %s (%d)"
	FormatBirthdaySummaryBirth = "Birthday: %s (birth)"

	// StubVCalendar is the minimal valid iCalendar object used when no events
	// are found, so feed clients never see an invalid document.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	MsgAppStarting     = "Starting application"
	MsgAppStop         = "Application stopped gracefully"
	MsgSyncStarted     = "Synchronization started..."
	MsgSyncFinished    = "Synchronization finished"
	MsgSyncFailed      = "Synchronization failed"
	MsgSkippedCard     = "Skipping malformed vCard"
	MsgSkippedDate     = "Skipping invalid date format"
	MsgSkippedContact  = "Skipping contact"
	MsgLabelDiscovered = "Discovered custom label"
	MsgLabelNotSaved   = "Custom label not persisted"
	MsgCardPushed      = "Contact pushed to server"
	MsgGenSuccess      = "Calendar generation successful"
	MsgServerListen    = "HTTP server listening"
	MsgServerStop      = "Shutting down HTTP server..."
	MsgCacheUpdated    = "Calendar cache updated"
	MsgWorkerStart     = "Background sync worker started"
	MsgWorkerStop      = "Worker stopping due to context cancellation"
	MsgLogWarning      = "Warning: %s at %s: %v\n"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent   = "component"
	LogKeyError       = "error"
	LogKeyURL         = "url"
	LogKeyStatus      = "status_code"
	LogKeyAccount     = "account"
	LogKeyAddressBook = "addressbook"
	LogKeyPath        = "path"
	LogKeyETag        = "etag"
	LogKeyField       = "field"
	LogKeyLabel       = "label"
	LogKeyPort        = "port"
	LogKeyInterval    = "interval"
	LogKeyUser        = "user"
	LogKeyTotal       = "total_cards"
	LogKeyUpserted    = "upserted"
	LogKeyRemoved     = "removed"
	LogKeySkipped     = "skipped"
	LogKeyFound       = "birthdays_found"
	LogKeySizeBytes   = "size_bytes"
	LogKeyValue       = "value"
	LogKeyStats       = "stats"
	LogKeyCount       = "count"
	LogKeyName        = "name"
	LogKeyDuration    = "duration_ms"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompConvert  = "convert"
	CompStore    = "store"
	CompSource   = "source"
	CompSync     = "sync"
	CompCalendar = "calendar"
	CompServer   = "server"
	CompMain     = "main"
)
