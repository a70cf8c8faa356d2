package actions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/logger"
	"github.com/relloyd/cdsync/pipeline"
	"github.com/relloyd/cdsync/pipeline/mocks"
	"github.com/relloyd/cdsync/stats"
	tabledefinition "github.com/relloyd/cdsync/table-definition"
)

// fakeService blocks each run until release is closed or the run is cancelled,
// then runs a real Runner whose schema fetch fails.
type fakeService struct {
	runner  *pipeline.Runner
	release chan struct{}
	runs    int32
}

func (f *fakeService) Run(ctx context.Context) *pipeline.Summary {
	atomic.AddInt32(&f.runs, 1)
	select {
	case <-f.release:
	case <-ctx.Done():
	}
	return f.runner.Run(ctx)
}

func (f *fakeService) Stats() []stats.Stats {
	return []stats.Stats{{TableName: "users", Phase: "sync", StatusText: "finished", TotalRows: 3}}
}

func newFakeService(t *testing.T) *fakeService {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().GetSchema(gomock.Any(), gomock.Any()).
		Return(tabledefinition.SchemaDescriptor{}, errors.New("unauthorised")).AnyTimes()
	r, err := pipeline.NewRunner(testLogger(), fetcher, mocks.NewMockStager(ctrl), mocks.NewMockWarehouse(ctrl), nil,
		pipeline.Options{WorkDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	return &fakeService{runner: r, release: make(chan struct{})}
}

func testLogger() logger.Logger {
	return logger.NewLogger("cdsync", "error", false)
}

func decodeBody(g *GomegaWithT, resp *http.Response) map[string]interface{} {
	defer resp.Body.Close()
	var m map[string]interface{}
	g.Expect(json.NewDecoder(resp.Body).Decode(&m)).To(Succeed())
	return m
}

func TestHealth(t *testing.T) {
	g := NewGomegaWithT(t)
	ts := httptest.NewServer(NewServer(testLogger(), newFakeService(t)).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(resp.StatusCode).To(Equal(http.StatusOK))
	g.Expect(decodeBody(g, resp)["status"]).To(Equal("ok"))
}

func TestSyncLaunchAndLatestRun(t *testing.T) {
	g := NewGomegaWithT(t)
	svc := newFakeService(t)
	s := NewServer(testLogger(), svc)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	defer func() { _ = s.Stop(time.Second) }()

	resp, err := http.Get(ts.URL + "/runs/latest")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	resp.Body.Close()

	resp, err = http.Post(ts.URL+"/sync", "application/json", nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
	resp.Body.Close()

	// One run at a time.
	resp, err = http.Post(ts.URL+"/sync", "application/json", nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(resp.StatusCode).To(Equal(http.StatusConflict))
	g.Expect(decodeBody(g, resp)["status"]).To(Equal("error"))

	resp, err = http.Get(ts.URL + "/runs/latest")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(resp.StatusCode).To(Equal(http.StatusOK))
	body := decodeBody(g, resp)
	g.Expect(body["running"]).To(BeTrue())
	g.Expect(body["trigger"]).To(Equal("http"))

	close(svc.release)
	g.Eventually(func() bool { return s.State().Latest != nil }).Should(BeTrue())

	resp, err = http.Get(ts.URL + "/runs/latest")
	g.Expect(err).NotTo(HaveOccurred())
	body = decodeBody(g, resp)
	g.Expect(body["running"]).To(BeFalse())
	run := body["run"].(map[string]interface{})
	g.Expect(run["exitCode"]).To(BeEquivalentTo(2))
	g.Expect(run["fatal"]).To(ContainSubstring("unauthorised"))
	g.Expect(atomic.LoadInt32(&svc.runs)).To(BeEquivalentTo(1))
}

func TestLatestRunStats(t *testing.T) {
	g := NewGomegaWithT(t)
	ts := httptest.NewServer(NewServer(testLogger(), newFakeService(t)).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/runs/latest/stats")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(resp.StatusCode).To(Equal(http.StatusOK))
	tables := decodeBody(g, resp)["tables"].([]interface{})
	g.Expect(tables).To(HaveLen(1))
	g.Expect(tables[0].(map[string]interface{})["tableName"]).To(Equal("users"))
}

func TestSyncRequiresPost(t *testing.T) {
	g := NewGomegaWithT(t)
	ts := httptest.NewServer(NewServer(testLogger(), newFakeService(t)).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/sync")
	g.Expect(err).NotTo(HaveOccurred())
	resp.Body.Close()
	g.Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
}

func TestStopEndpointSignalsShutdown(t *testing.T) {
	g := NewGomegaWithT(t)
	s := NewServer(testLogger(), newFakeService(t))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for i := 0; i < 2; i++ { // a second stop must not block.
		resp, err := http.Post(ts.URL+"/stop", "application/json", nil)
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(resp.StatusCode).To(Equal(http.StatusOK))
		resp.Body.Close()
	}
	g.Expect(<-s.chanStop).To(Equal("stop"))
}

func TestStopCancelsRunningSync(t *testing.T) {
	g := NewGomegaWithT(t)
	svc := newFakeService(t)
	s := NewServer(testLogger(), svc)

	g.Expect(s.Launch("test")).To(BeTrue())
	g.Eventually(func() int32 { return atomic.LoadInt32(&svc.runs) }).Should(BeEquivalentTo(1))
	g.Expect(s.Stop(5 * time.Second)).To(Succeed())
	g.Expect(s.State().Running).To(BeFalse())
	g.Expect(s.State().Latest).NotTo(BeNil())
	g.Expect(s.Launch("test")).To(BeFalse())
}

func TestSchedule(t *testing.T) {
	g := NewGomegaWithT(t)
	s := NewServer(testLogger(), newFakeService(t))

	_, err := s.schedule("not a schedule")
	g.Expect(err).To(HaveOccurred())
	g.Expect(err.Error()).To(ContainSubstring("invalid cron schedule"))

	c, err := s.schedule("0 3 * * *")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(c.Entries()).To(HaveLen(1))
}

func TestRunWebServerValidation(t *testing.T) {
	g := NewGomegaWithT(t)
	g.Expect(RunWebServer(testLogger(), newFakeService(t), nil)).NotTo(Succeed())
	g.Expect(RunWebServer(testLogger(), newFakeService(t), &WebServerConfig{})).NotTo(Succeed())
	g.Expect(RunWebServer(testLogger(), newFakeService(t), &WebServerConfig{Port: 8080, Schedule: "bad"})).NotTo(Succeed())
}
