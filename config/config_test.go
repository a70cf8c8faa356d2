package config_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/cdsync/config"
)

var envNames = []string{
	"BUCKET_NAME", "PROJECT_NAME", "DATASET_NAME", "TABLE_NAME", "API_KEY", "API_SECRET",
	"CDS_SYNC_WORKERS", "CDS_SKIP_TABLES", "CDS_TABLE_TIMEOUT", "CDS_STAGE_TYPE", "CDS_WAREHOUSE_TYPE",
	"CDS_LEGACY_EXIT_STATUS", "CDS_DATADOG_TAGS",
}

func clearEnv() {
	for _, n := range envNames {
		_ = os.Unsetenv(n)
	}
}

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		clearEnv()
		var err error
		dir, err = ioutil.TempDir("", "cdsync-config")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		clearEnv()
		_ = os.RemoveAll(dir)
	})

	writeFile := func(name, content string) string {
		p := filepath.Join(dir, name)
		Expect(ioutil.WriteFile(p, []byte(content), 0600)).To(Succeed())
		return p
	}

	validEnv := func() {
		Expect(os.Setenv("BUCKET_NAME", "bkt")).To(Succeed())
		Expect(os.Setenv("PROJECT_NAME", "proj")).To(Succeed())
		Expect(os.Setenv("DATASET_NAME", "canvas")).To(Succeed())
		Expect(os.Setenv("API_KEY", "key")).To(Succeed())
		Expect(os.Setenv("API_SECRET", "secret")).To(Succeed())
	}

	It("Should apply defaults when the config file is empty", func() {
		c, err := config.Load(config.Options{File: writeFile("config.yaml", "")})
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Canvas.BaseURL).To(Equal("https://api.inshosteddata.com"))
		Expect(c.Canvas.SchemaVersion).To(Equal("latest"))
		Expect(c.Stage.Type).To(Equal("gcs"))
		Expect(c.Warehouse.Type).To(Equal("bigquery"))
		Expect(c.Sync.Workers).To(Equal(1))
		Expect(c.Sync.LogTable).To(Equal("requests"))
		Expect(c.LegacyExitStatus).To(BeFalse())
	})

	It("Should decode the YAML file", func() {
		f := writeFile("config.yaml", `
canvas:
  apiKey: file-key
  timeout: 90s
stage:
  bucket: file-bucket
  prefix: canvas
warehouse:
  project: proj
  dataset: ds
  credentialsFile: /etc/key.json
  typeMap:
    bigint: INT64
sync:
  workers: 3
  tableTimeout: 15m
  skipTables:
    - quiz_dim
    - wiki_fact
  tableFilter: '{"!=": [{"var": "table"}, "x"]}'
datadog:
  enabled: true
  tags: ["env:test"]
logLevel: debug
`)
		c, err := config.Load(config.Options{File: f})
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Canvas.APIKey).To(Equal("file-key"))
		Expect(c.Canvas.Timeout).To(Equal(90 * time.Second))
		Expect(c.Stage.Bucket).To(Equal("file-bucket"))
		Expect(c.Stage.Prefix).To(Equal("canvas"))
		Expect(c.Warehouse.Credentials.File).To(Equal("/etc/key.json"))
		Expect(c.Warehouse.TypeMap).To(HaveKeyWithValue("bigint", "INT64"))
		Expect(c.Sync.Workers).To(Equal(3))
		Expect(c.Sync.LoadWorkers).To(Equal(1))
		Expect(c.Sync.TableTimeout).To(Equal(15 * time.Minute))
		Expect(c.Sync.SkipTables).To(Equal([]string{"quiz_dim", "wiki_fact"}))
		Expect(c.Sync.TableFilter).To(ContainSubstring(`"var"`))
		Expect(c.Datadog.Enabled).To(BeTrue())
		Expect(c.Datadog.Tags).To(Equal([]string{"env:test"}))
		Expect(c.LogLevel).To(Equal("debug"))
	})

	It("Should let the environment override the file", func() {
		f := writeFile("config.yaml", "stage:\n  bucket: file-bucket\nsync:\n  workers: 3\n")
		Expect(os.Setenv("BUCKET_NAME", "env-bucket")).To(Succeed())
		Expect(os.Setenv("TABLE_NAME", "legacy-ds")).To(Succeed())
		Expect(os.Setenv("CDS_SYNC_WORKERS", "4")).To(Succeed())
		Expect(os.Setenv("CDS_SKIP_TABLES", "a, b ,,c")).To(Succeed())
		Expect(os.Setenv("CDS_TABLE_TIMEOUT", "2m")).To(Succeed())
		Expect(os.Setenv("CDS_LEGACY_EXIT_STATUS", "true")).To(Succeed())

		c, err := config.Load(config.Options{File: f})
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Stage.Bucket).To(Equal("env-bucket"))
		Expect(c.Warehouse.Dataset).To(Equal("legacy-ds"))
		Expect(c.Sync.Workers).To(Equal(4))
		Expect(c.Sync.SkipTables).To(Equal([]string{"a", "b", "c"}))
		Expect(c.Sync.TableTimeout).To(Equal(2 * time.Minute))
		Expect(c.LegacyExitStatus).To(BeTrue())
	})

	It("Should prefer DATASET_NAME over the legacy TABLE_NAME", func() {
		Expect(os.Setenv("DATASET_NAME", "new-ds")).To(Succeed())
		Expect(os.Setenv("TABLE_NAME", "legacy-ds")).To(Succeed())
		c, err := config.Load(config.Options{File: writeFile("config.yaml", "")})
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Warehouse.Dataset).To(Equal("new-ds"))
	})

	It("Should load a .env file without overwriting the environment", func() {
		Expect(os.Setenv("API_KEY", "from-env")).To(Succeed())
		envFile := writeFile("test.env", "API_KEY=from-file\nAPI_SECRET=file-secret\n")
		c, err := config.Load(config.Options{File: writeFile("config.yaml", ""), EnvFile: envFile})
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Canvas.APIKey).To(Equal("from-env"))
		Expect(c.Canvas.APISecret).To(Equal("file-secret"))
	})

	It("Should report a missing explicit config file", func() {
		_, err := config.Load(config.Options{File: filepath.Join(dir, "missing.yaml")})
		Expect(err).To(BeAssignableToTypeOf(config.FileNotFoundError{}))
	})

	It("Should refuse a malformed config file", func() {
		_, err := config.Load(config.Options{File: writeFile("config.yaml", "sync:\n  workers: [1, 2]\n")})
		Expect(err).To(HaveOccurred())
	})

	It("Should validate a complete BigQuery configuration", func() {
		validEnv()
		c, err := config.Load(config.Options{File: writeFile("config.yaml", "")})
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Validate()).To(Succeed())
		Expect(c.String()).ToNot(ContainSubstring("secret"))
	})

	It("Should list every missing mandatory setting", func() {
		c := config.Default()
		err := c.Validate()
		Expect(err).To(HaveOccurred())
		for _, s := range []string{"API_KEY", "API_SECRET", "BUCKET_NAME", "PROJECT_NAME", "DATASET_NAME"} {
			Expect(err.Error()).To(ContainSubstring(s))
		}
	})

	It("Should refuse stage and warehouse combinations that cannot work", func() {
		validEnv()
		c, err := config.Load(config.Options{File: writeFile("config.yaml", "stage:\n  type: s3\n  region: eu-west-1\n")})
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Validate()).To(MatchError(ContainSubstring("GCS only")))

		c.Warehouse.Type = "snowflake"
		Expect(c.Validate()).To(MatchError(ContainSubstring("Snowflake DSN")))
		c.Warehouse.SnowflakeDSN = "snowflake://u:p@acct/db?schema=s"
		c.Warehouse.SnowflakeStage = "canvas_stage"
		Expect(c.Validate()).To(Succeed())

		c.Warehouse.Type = "redshift"
		Expect(c.Validate()).To(MatchError(ContainSubstring("unsupported warehouse type")))
	})

	It("Should apply command line flags over everything else", func() {
		validEnv()
		Expect(os.Setenv("CDS_SYNC_WORKERS", "2")).To(Succeed())
		c, err := config.Load(config.Options{File: writeFile("config.yaml", "")})
		Expect(err).ToNot(HaveOccurred())
		Expect(c.ApplyFlags(map[string]string{
			"sync-workers":  "6",
			"bucket":        "other",
			"table-timeout": "90s",
			"skip-tables":   "a, b",
			"type-map":      "date:DATE, datetime : TIMESTAMP",
		})).To(Succeed())
		Expect(c.Warehouse.TypeMap).To(Equal(map[string]string{"date": "DATE", "datetime": "TIMESTAMP"}))
		Expect(c.Sync.Workers).To(Equal(6))
		Expect(c.Stage.Bucket).To(Equal("other"))
		Expect(c.Sync.TableTimeout).To(Equal(90 * time.Second))
		Expect(c.Sync.SkipTables).To(Equal([]string{"a", "b"}))
		Expect(config.FlagNames()).To(ContainElement("legacy-exit-status"))
	})

	It("Should replace lists from lower precedence sources", func() {
		f := writeFile("config.yaml", `
sync:
  skipTables: [a, b, c]
datadog:
  tags: [env:prod, team:data, region:eu]
`)
		Expect(os.Setenv("CDS_SKIP_TABLES", "x")).To(Succeed())
		c, err := config.Load(config.Options{File: f})
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Sync.SkipTables).To(Equal([]string{"x"}))
		Expect(c.Datadog.Tags).To(Equal([]string{"env:prod", "team:data", "region:eu"}))

		Expect(c.ApplyFlags(map[string]string{"skip-tables": "a,b,c", "datadog-tags": "env:dev"})).To(Succeed())
		Expect(c.ApplyFlags(map[string]string{"skip-tables": "z"})).To(Succeed())
		Expect(c.Sync.SkipTables).To(Equal([]string{"z"}))
		Expect(c.Datadog.Tags).To(Equal([]string{"env:dev"}))
	})

	It("Should keep defaults under an empty YAML section", func() {
		c, err := config.Load(config.Options{File: writeFile("config.yaml", "sync:\ncanvas:\n  timeout:\n")})
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Sync.Workers).To(Equal(1))
		Expect(c.Sync.LogTable).To(Equal("requests"))
		Expect(c.Canvas.Timeout).To(Equal(10 * time.Minute))
	})

	It("Should refuse unknown flags and bad flag values", func() {
		c := config.Default()
		Expect(c.ApplyFlags(map[string]string{"api-secret": "x"})).ToNot(Succeed())
		Expect(c.ApplyFlags(map[string]string{"sync-workers": "many"})).ToNot(Succeed())
	})
})
