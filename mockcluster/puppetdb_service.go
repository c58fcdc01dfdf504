package mockcluster

import (
	"io"
	"net/http"
	"regexp"
	"sync"

	"github.com/pupperware/cluster-harness/framework"

	"github.com/gorilla/mux"
	"github.com/launchdarkly/go-jsonstream/v3/jreader"
)

var certnameInQuery = regexp.MustCompile(`certname\s*=\s*"([^"]*)"`) //nolint:gochecknoglobals

// Response is a scripted HTTP response.
type Response struct {
	Status int
	Body   string
}

// JSONResponse is a 200 response with the given body.
func JSONResponse(body string) Response {
	return Response{Status: http.StatusOK, Body: body}
}

// StatusResponse is a PuppetDB status document with the given state.
func StatusResponse(state string) Response {
	return JSONResponse(`{"service_version":"7.0.0","service_status_version":1,"detail_level":"info","state":"` +
		state + `","status":{}}`)
}

// PuppetDBService serves the status and node query endpoints of PuppetDB from scripts. Node
// queries are answered per certname; a certname with no script gets an empty list.
type PuppetDBService struct {
	handler     http.Handler
	statuses    *Script[Response]
	reports     map[string]*Script[Response]
	queries     []string
	debugLogger framework.Logger
	lock        sync.Mutex
}

// NewPuppetDBService creates a service whose status is "running" until scripted otherwise.
func NewPuppetDBService(debugLogger framework.Logger) *PuppetDBService {
	p := &PuppetDBService{
		statuses:    Values(StatusResponse("running")),
		reports:     make(map[string]*Script[Response]),
		debugLogger: framework.OrNull(debugLogger),
	}
	router := mux.NewRouter()
	router.HandleFunc("/status/v1/services/puppetdb-status", p.serveStatus).Methods("GET")
	router.HandleFunc("/pdb/query/v4", p.serveQuery).Methods("POST")
	p.handler = router
	return p
}

func (p *PuppetDBService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// WithStatuses scripts the responses of the status endpoint.
func (p *PuppetDBService) WithStatuses(responses ...Response) *PuppetDBService {
	p.lock.Lock()
	p.statuses = Values(responses...)
	p.lock.Unlock()
	return p
}

// WithReports scripts the responses of node queries for the certname.
func (p *PuppetDBService) WithReports(certname string, responses ...Response) *PuppetDBService {
	p.lock.Lock()
	p.reports[certname] = Values(responses...)
	p.lock.Unlock()
	return p
}

// Queries returns the PQL query strings that were received, in order.
func (p *PuppetDBService) Queries() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]string(nil), p.queries...)
}

// StatusRequests returns the number of status requests that have consumed a scripted response.
func (p *PuppetDBService) StatusRequests() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.statuses.Used()
}

func (p *PuppetDBService) serveStatus(w http.ResponseWriter, r *http.Request) {
	p.lock.Lock()
	resp, _ := p.statuses.Next()
	p.lock.Unlock()
	p.debugLogger.Printf("Sending puppetdb status: HTTP %d %s", resp.Status, resp.Body)
	writeResponse(w, resp)
}

func (p *PuppetDBService) serveQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	query, ok := readQuery(body)
	if !ok {
		writeResponse(w, Response{Status: http.StatusBadRequest, Body: `{"error":"malformed query"}`})
		return
	}

	p.lock.Lock()
	p.queries = append(p.queries, query)
	resp := JSONResponse("[]")
	if m := certnameInQuery.FindStringSubmatch(query); m != nil {
		if s, ok := p.reports[m[1]]; ok {
			resp, _ = s.Next()
		}
	}
	p.lock.Unlock()

	p.debugLogger.Printf("Answering query %q: HTTP %d %s", query, resp.Status, resp.Body)
	writeResponse(w, resp)
}

func readQuery(body []byte) (string, bool) {
	r := jreader.NewReader(body)
	query := ""
	for obj := r.Object(); obj.Next(); {
		if string(obj.Name()) == "query" {
			query = r.String()
		} else {
			_ = r.SkipValue()
		}
	}
	return query, r.Error() == nil && query != ""
}

func writeResponse(w http.ResponseWriter, resp Response) {
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(resp.Body))
}
