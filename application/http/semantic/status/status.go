// Package status lists the response status codes the server produces.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15
package status

type Status struct {
	Code         uint
	ReasonPhrase string
}

func (s Status) String() string { return s.ReasonPhrase }

// Successful 2XX
var (
	OK             = add(Status{200, "OK"})
	NoContent      = add(Status{204, "No Content"})
	PartialContent = add(Status{206, "Partial Content"})
)

// Redirection 3xx
var (
	NotModified = add(Status{304, "Not Modified"})
)

// Client Error 4xx
var (
	BadRequest                  = add(Status{400, "Bad Request"})
	Forbidden                   = add(Status{403, "Forbidden"})
	NotFound                    = add(Status{404, "Not Found"})
	MethodNotAllowed            = add(Status{405, "Method Not Allowed"})
	RequestTimeout              = add(Status{408, "Request Timeout"})
	LengthRequired              = add(Status{411, "Length Required"})
	PreconditionFailed          = add(Status{412, "Precondition Failed"})
	ContentTooLarge             = add(Status{413, "Content Too Large"})
	URITooLong                  = add(Status{414, "URI Too Long"})
	RangeNotSatisfiable         = add(Status{416, "Range Not Satisfiable"})
	RequestHeaderFieldsTooLarge = add(Status{431, "Request Header Fields Too Large"})
)

// Server Error 5xx
var (
	InternalServerError     = add(Status{500, "Internal Server Error"})
	NotImplemented          = add(Status{501, "Not Implemented"})
	ServiceUnavailable      = add(Status{503, "Service Unavailable"})
	HTTPVersionNotSupported = add(Status{505, "HTTP Version Not Supported"})
)

var sm = make(map[uint]*Status)

func add(status Status) Status {
	sm[status.Code] = &status
	return status
}

// FromCode looks up the registered status of code.
// An unknown code yields a status with an empty reason phrase.
func FromCode(code uint) (status Status, ok bool) {
	s, ok := sm[code]
	if !ok {
		return Status{Code: code, ReasonPhrase: ""}, false
	}

	return *s, true
}
