package schema

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/pipeline"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/versions"
)

const sourceList = `
libraries:
  kafka:
    - name: kafka-clients-2.6
      display_name: Kafka Clients
      javaagent_target_versions:
        - org.apache.kafka:kafka-clients:[2.6,)
      configurations:
        - name: otel.instrumentation.kafka.producer-propagation.enabled
          type: boolean
          default: true
      telemetry:
        - when: default
          metrics:
            - name: kafka.client.duration
              type: HISTOGRAM
              unit: ms
              attributes:
                - name: messaging.system
                  type: STRING
  jdbc:
    - name: jdbc
      display_name: JDBC
`

func generateTree(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "src/instrumentation-list-2.20.0.yaml", []byte(sourceList), 0o644))

	g, err := pipeline.NewGenerator(pipeline.Options{
		Fs:        fs,
		OutputDir: "out",
		Versions: []versions.Version{{
			Version:    "2.20.0",
			SourcePath: "src/instrumentation-list-2.20.0.yaml",
			IsLatest:   true,
		}},
	})
	require.NoError(t, err)
	require.NoError(t, g.Generate(context.Background()))
	return fs
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(KindVersions, []byte(`{"versions":[{"version":"1.0.0","manifest_url":"/data/versions/1.0.0.json","is_latest":true}]}`)))
	assert.Error(t, Validate(KindVersions, []byte(`{"versions":[]}`)))
	assert.Error(t, Validate(KindInstrumentation, []byte(`{"id":"x","display_name":"X"}`)))
	assert.Error(t, Validate(KindInstrumentation, []byte(`{"id":"x","display_name":"X","library_group":"g","unknown":1}`)))
	assert.Error(t, Validate(KindManifest, []byte(`{"version":"1","agent_version":"1","instrumentations":{"x":{"hash":"ABC","url":"u","filename":"x.json"}},"metadata":{"total_count":1}}`)))
	assert.Error(t, Validate(Kind("nope"), []byte(`{}`)))
}

func TestValidateTreeClean(t *testing.T) {
	fs := generateTree(t)

	report, err := ValidateTree(fs, "out")
	require.NoError(t, err)
	assert.NoError(t, report.Err())
	// versions.json, one manifest, index.json and two blobs
	assert.Equal(t, 5, report.Files)
}

func TestValidateTreeDetectsTampering(t *testing.T) {
	fs := generateTree(t)

	infos, err := afero.ReadDir(fs, "out/instrumentations")
	require.NoError(t, err)
	var jdbcBlob string
	for _, info := range infos {
		if info.Name()[:5] == "jdbc-" {
			jdbcBlob = filepath.Join("out/instrumentations", info.Name())
		}
	}
	require.NotEmpty(t, jdbcBlob)
	require.NoError(t, afero.WriteFile(fs, jdbcBlob, []byte(`{"id":"jdbc","display_name":"Changed","library_group":"jdbc"}`), 0o644))

	report, err := ValidateTree(fs, "out")
	require.NoError(t, err)
	require.Len(t, report.Problems, 1)
	assert.Contains(t, report.Problems[0].Error(), "content hashes to")
}

func TestValidateTreeDetectsMissingBlob(t *testing.T) {
	fs := generateTree(t)

	infos, err := afero.ReadDir(fs, "out/instrumentations")
	require.NoError(t, err)
	require.NoError(t, fs.Remove(filepath.Join("out/instrumentations", infos[0].Name())))

	report, err := ValidateTree(fs, "out")
	require.NoError(t, err)
	assert.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "missing blob")
}

func TestValidateTreeMissingOutput(t *testing.T) {
	report, err := ValidateTree(afero.NewMemMapFs(), "out")
	require.NoError(t, err)
	assert.Error(t, report.Err())
}
