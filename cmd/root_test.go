package cmd

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/constants"
	"github.com/relloyd/cdsync/logger"
	"github.com/relloyd/cdsync/pipeline"
	"github.com/relloyd/cdsync/pipeline/mocks"
	tabledefinition "github.com/relloyd/cdsync/table-definition"
)

func TestExitCode(t *testing.T) {
	g := NewGomegaWithT(t)
	g.Expect(exitCode(nil)).To(Equal(constants.ExitCodeOK))
	g.Expect(exitCode(errors.New("bad flag"))).To(Equal(constants.ExitCodeFatal))
	g.Expect(exitCode(fatal(errors.New("no config")))).To(Equal(constants.ExitCodeFatal))
	g.Expect(exitCode(&exitError{code: constants.ExitCodeTableFailures})).To(Equal(constants.ExitCodeTableFailures))
	g.Expect(exitCode(errors.Wrap(&exitError{code: 1}, "wrapped"))).To(Equal(1))
}

func failedSummary(t *testing.T) *pipeline.Summary {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().GetSchema(gomock.Any(), gomock.Any()).Return(tabledefinition.SchemaDescriptor{}, errors.New("unauthorised"))
	r, err := pipeline.NewRunner(logger.NewLogger("cdsync", "error", false), fetcher,
		mocks.NewMockStager(ctrl), mocks.NewMockWarehouse(ctrl), nil, pipeline.Options{WorkDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	return r.Run(t.Context())
}

func TestExitStatus(t *testing.T) {
	g := NewGomegaWithT(t)
	sum := failedSummary(t)

	err := exitStatus(sum, false)
	g.Expect(exitCode(err)).To(Equal(constants.ExitCodeFatal))
	g.Expect(exitStatus(sum, true)).To(Succeed())

	var buf bytes.Buffer
	g.Expect(writeSummary(&buf, sum)).To(Succeed())
	g.Expect(buf.String()).To(ContainSubstring(`"exitCode": 2`))
}

func TestVersionCommand(t *testing.T) {
	g := NewGomegaWithT(t)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	defer rootCmd.SetOut(nil)
	rootCmd.SetArgs([]string{"version"})
	g.Expect(rootCmd.Execute()).To(Succeed())
	g.Expect(buf.String()).To(ContainSubstring("Version:\t" + version))
}

func TestSyncCommandMissingConfigFile(t *testing.T) {
	g := NewGomegaWithT(t)
	rootCmd.SetArgs([]string{"sync", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	err := rootCmd.Execute()
	g.Expect(exitCode(err)).To(Equal(constants.ExitCodeFatal))
}

func TestSchemaCommand(t *testing.T) {
	g := NewGomegaWithT(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/schema/latest" || r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"version":"5.2.0","schema":{"user":{"tableName":"user_dim","columns":[{"name":"id","type":"bigint"}]}}}`)
	}))
	defer srv.Close()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	g.Expect(ioutil.WriteFile(cfgPath, []byte("logLevel: error\n"), 0600)).To(Succeed())
	for k, v := range map[string]string{"API_KEY": "key", "API_SECRET": "secret", "CDS_CANVAS_BASE_URL": srv.URL} {
		g.Expect(os.Setenv(k, v)).To(Succeed())
		defer os.Unsetenv(k)
	}

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	defer rootCmd.SetOut(nil)
	rootCmd.SetArgs([]string{"schema", "--config", cfgPath, "-o", "json"})
	g.Expect(rootCmd.Execute()).To(Succeed())
	g.Expect(buf.String()).To(ContainSubstring(`"user_dim"`))
	g.Expect(buf.String()).To(ContainSubstring(`"version": "5.2.0"`))
}
