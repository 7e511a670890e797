package eams

// Endpoints are the upstream URLs the engine talks to.
type Endpoints struct {
	Login     string `json:"login"`
	Logout    string `json:"logout"`
	EAMS      string `json:"eams"`
	TermBegin string `json:"term_begin"`
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:     "https://ids.shanghaitech.edu.cn/authserver/login",
		Logout:    "https://egate.shanghaitech.edu.cn/logout",
		EAMS:      "https://eams.shanghaitech.edu.cn/eams",
		TermBegin: "https://egate.shanghaitech.edu.cn/publicapp/sys/mykbxt/api/getSchoolCalendar.do",
	}
}

// Wire constants shared with the remote system.
const (
	// AuthRequiredMarker is the title of the CAS interstitial served instead of
	// the requested page once a session has expired.
	AuthRequiredMarker = "统一身份认证"

	// TicketCookie is issued by the CAS server on a successful login.
	TicketCookie = "CASTGC"

	DefaultMaxRedirects = 4
	DefaultMaxWeeks     = 18
)
