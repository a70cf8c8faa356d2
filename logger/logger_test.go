package logger_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/cdsync/logger"
)

var _ = Describe("Logger", func() {
	log := logger.NewLogger("test-service", "debug", true)
	log.SetJSONFormat()

	lastLine := func(b *bytes.Buffer) map[string]interface{} {
		var actual map[string]interface{}
		lines := bytes.Split(bytes.TrimSpace(b.Bytes()), []byte("\n"))
		Expect(json.Unmarshal(lines[len(lines)-1], &actual)).To(Succeed())
		return actual
	}

	It("Should have `test-service` as service name", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		log.Info("Testing")

		Expect(lastLine(logOutput)["service"]).To(Equal("test-service"))
	})

	It("Should have info as log level", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		log.Info("Testing")

		Expect(lastLine(logOutput)["level"]).To(Equal("info"))
	})

	It("Should have warn as log level", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		log.Warn("Testing")

		Expect(lastLine(logOutput)["level"]).To(Equal("warning"))
	})

	It("Should have error as log level with a stack trace", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		log.Error("Testing")
		actual := lastLine(logOutput)

		Expect(actual["level"]).To(Equal("error"))
		Expect(actual["stackTrace"]).ToNot(BeNil())
	})

	It("Should carry fields added with WithField and WithFields", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		log.WithField("table", "users").WithFields(map[string]interface{}{"phase": "sync"}).Info("Testing")
		actual := lastLine(logOutput)

		Expect(actual["table"]).To(Equal("users"))
		Expect(actual["phase"]).To(Equal("sync"))
		Expect(actual["service"]).To(Equal("test-service"))
		Expect(actual["msg"]).To(Equal("Testing"))
	})

	It("Should refuse an unknown log level", func() {
		_, err := logger.NewLoggerE("test-service", "chatty", false)
		Expect(err).To(HaveOccurred())
	})
})
