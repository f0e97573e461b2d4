package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"sparkload/internal/catalog"
	"sparkload/internal/testutil"
	"sparkload/pkg/errors"
	"sparkload/pkg/models"
)

const sampleINI = `[CLUSTER]
HOST='dwhcluster.abc123.us-west-2.redshift.amazonaws.com'
DB_NAME='dwh'
DB_USER='dwhuser'
DB_PASSWORD='Passw0rd'
DB_PORT='5439'

[IAM_ROLE]
ARN='arn:aws:iam::123456789012:role/dwhRole'

[S3]
LOG_DATA='s3://udacity-dend/log_data'
LOG_JSONPATH='s3://udacity-dend/log_json_path.json'
SONG_DATA='s3://udacity-dend/song_data'
`

// isolate keeps the user's real config and environment out of a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(EnvConfigFile, "")
	t.Setenv(EnvEncryptionKey, "test-passphrase")
	t.Chdir(dir)
	return dir
}

func TestLoadINI(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteFile(t, dir, "dwh.cfg", sampleINI)

	loaded, err := Load(Options{Path: path}, testutil.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, path, loaded.File)

	c := loaded.Config
	assert.Equal(t, "dwhcluster.abc123.us-west-2.redshift.amazonaws.com", c.Cluster.Host)
	assert.Equal(t, "dwh", c.Cluster.DBName)
	assert.Equal(t, "dwhuser", c.Cluster.DBUser)
	assert.Equal(t, "Passw0rd", c.Cluster.DBPassword)
	assert.Equal(t, 5439, c.Cluster.DBPort)
	assert.Equal(t, "arn:aws:iam::123456789012:role/dwhRole", c.IAMRole.ARN)
	assert.Equal(t, "s3://udacity-dend/log_data", c.S3.LogData)
	assert.Equal(t, "s3://udacity-dend/log_json_path.json", c.S3.LogJSONPath)
	assert.Equal(t, "s3://udacity-dend/song_data", c.S3.SongData)

	// Defaults for the section the original layout lacks
	assert.Equal(t, "redshift", c.Warehouse.Dialect)
	assert.Equal(t, catalog.DefaultRegion, c.Warehouse.Region)
	assert.Equal(t, time.Duration(0), c.Warehouse.Timeout)
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	testutil.WriteFile(t, dir, DefaultFileName, sampleINI)

	loaded, err := Load(Options{}, testutil.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, "dwh", loaded.Config.Cluster.DBName)
	assert.Equal(t, DefaultFileName, filepath.Base(loaded.File))
}

func TestLoadSearchesConfigEnv(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteFile(t, dir, "elsewhere/prod.cfg", sampleINI)
	t.Setenv(EnvConfigFile, path)

	loaded, err := Load(Options{}, testutil.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, path, loaded.File)
}

func TestLoadSearchesHomeDirectory(t *testing.T) {
	dir := isolate(t)
	testutil.WriteFile(t, dir, ".sparkload/dwh.cfg", sampleINI)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "work"), 0o755))
	t.Chdir(filepath.Join(dir, "work"))

	loaded, err := Load(Options{}, testutil.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".sparkload", "dwh.cfg"), loaded.File)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteFile(t, dir, "dwh.cfg", sampleINI)
	t.Setenv("SPARKLOAD_CLUSTER_HOST", "localhost")
	t.Setenv("SPARKLOAD_CLUSTER_DB_PASSWORD", "from-env")
	t.Setenv("SPARKLOAD_WAREHOUSE_TIMEOUT", "15m")

	loaded, err := Load(Options{Path: path}, testutil.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, "localhost", loaded.Config.Cluster.Host)
	assert.Equal(t, "from-env", loaded.Config.Cluster.DBPassword)
	assert.Equal(t, 15*time.Minute, loaded.Config.Warehouse.Timeout)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteFile(t, dir, "dwh.cfg", sampleINI)
	envFile := testutil.WriteFile(t, dir, ".env", "SPARKLOAD_S3_SONG_DATA=s3://mirror/song_data\n")
	t.Cleanup(func() { os.Unsetenv("SPARKLOAD_S3_SONG_DATA") })

	loaded, err := Load(Options{Path: path, EnvFile: envFile}, testutil.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, "s3://mirror/song_data", loaded.Config.S3.SongData)
}

func TestLoadDialectOption(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteFile(t, dir, "dwh.cfg", sampleINI)

	loaded, err := Load(Options{Path: path, Dialect: "duckdb"}, testutil.DiscardLogger())
	require.NoError(t, err)

	d, err := Dialect(loaded.Config)
	require.NoError(t, err)
	assert.Equal(t, catalog.DuckDB, d)
}

func TestLoadYAML(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteFile(t, dir, "dwh.yaml", `cluster:
  host: localhost
  db_name: dwh
  db_user: loader
  db_password: secret
warehouse:
  dialect: snowflake
  account: xy12345
  warehouse: COMPUTE_WH
  storage_integration: s3_int
  timeout: 10m
s3:
  log_data: s3://bucket/log_data
  song_data: s3://bucket/song_data
`)

	loaded, err := Load(Options{Path: path}, testutil.DiscardLogger())
	require.NoError(t, err)
	c := loaded.Config
	assert.Equal(t, "snowflake", c.Warehouse.Dialect)
	assert.Equal(t, "s3_int", c.Warehouse.StorageIntegration)
	assert.Equal(t, 10*time.Minute, c.Warehouse.Timeout)
	assert.Equal(t, 5439, c.Cluster.DBPort)
}

func TestLoadErrors(t *testing.T) {
	t.Run("explicit file missing", func(t *testing.T) {
		dir := isolate(t)
		_, err := Load(Options{Path: filepath.Join(dir, "missing.cfg")}, testutil.DiscardLogger())
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeConfigNotFound, errors.GetErrorCode(err))
	})

	t.Run("unknown dialect", func(t *testing.T) {
		dir := isolate(t)
		path := testutil.WriteFile(t, dir, "dwh.cfg", sampleINI+"\n[WAREHOUSE]\nDIALECT=bigquery\n")
		_, err := Load(Options{Path: path}, testutil.DiscardLogger())
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))
	})

	t.Run("no file falls back to environment", func(t *testing.T) {
		isolate(t)
		t.Setenv("SPARKLOAD_CLUSTER_HOST", "env-only")
		loaded, err := Load(Options{}, testutil.DiscardLogger())
		require.NoError(t, err)
		assert.Empty(t, loaded.File)
		assert.Equal(t, "env-only", loaded.Config.Cluster.Host)
	})
}

func TestEncryptedPassword(t *testing.T) {
	dir := isolate(t)

	enc, err := EncryptPassword("Passw0rd")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(enc))
	assert.NotContains(t, enc, "Passw0rd")

	again, err := EncryptPassword("Passw0rd")
	require.NoError(t, err)
	assert.NotEqual(t, enc, again, "salt and nonce are random")

	path := testutil.WriteFile(t, dir, "dwh.cfg",
		"[CLUSTER]\nHOST=h\nDB_NAME=d\nDB_USER=u\nDB_PASSWORD="+enc+"\n")
	loaded, err := Load(Options{Path: path}, testutil.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, "Passw0rd", loaded.Config.Cluster.DBPassword)

	t.Setenv(EnvEncryptionKey, "another-passphrase")
	_, err = Load(Options{Path: path}, testutil.DiscardLogger())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeEncryption, errors.GetErrorCode(err))
}

func TestDecryptPassword(t *testing.T) {
	isolate(t)

	plain, err := DecryptPassword("not-encrypted")
	require.NoError(t, err)
	assert.Equal(t, "not-encrypted", plain)

	_, err = DecryptPassword("ENC[!!!]")
	assert.Equal(t, errors.ErrCodeEncryption, errors.GetErrorCode(err))

	_, err = DecryptPassword("ENC[AAAA]")
	assert.Equal(t, errors.ErrCodeEncryption, errors.GetErrorCode(err))

	enc, err := EncryptPassword("")
	require.NoError(t, err)
	assert.Empty(t, enc)
}

func TestKeyringFallback(t *testing.T) {
	keyring.MockInit()
	isolate(t)

	c := &models.Config{Cluster: models.Cluster{Host: "h", DBUser: "u"}}
	password, err := ResolvePassword(c)
	require.NoError(t, err)
	assert.Empty(t, password, "nothing stored yet")

	require.NoError(t, StorePassword(c, "from-keyring"))
	stored, err := keyring.Get(KeyringService, "u@h")
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", stored)

	password, err = ResolvePassword(c)
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", password)

	// A value in the file wins over the keyring
	c.Cluster.DBPassword = "from-file"
	password, err = ResolvePassword(c)
	require.NoError(t, err)
	assert.Equal(t, "from-file", password)
}

func TestMappings(t *testing.T) {
	c := &models.Config{
		Cluster:   models.Cluster{Host: "h", DBName: "d", DBUser: "u", DBPassword: "p", DBPort: 5439},
		IAMRole:   models.IAMRole{ARN: "arn:aws:iam::1:role/r"},
		S3:        models.S3{LogData: "s3://b/log", LogJSONPath: "s3://b/paths.json", SongData: "s3://b/song"},
		Warehouse: models.Warehouse{Dialect: "redshift", Region: "us-east-1", Timeout: time.Minute},
	}

	params := CatalogParams(c)
	assert.Equal(t, catalog.Params{
		LogData:     "s3://b/log",
		LogJSONPath: "s3://b/paths.json",
		SongData:    "s3://b/song",
		RoleARN:     "arn:aws:iam::1:role/r",
		Region:      "us-east-1",
	}, params)

	wc, err := WarehouseConfig(c)
	require.NoError(t, err)
	assert.Equal(t, catalog.Redshift, wc.Dialect)
	assert.Equal(t, "h", wc.Host)
	assert.Equal(t, 5439, wc.Port)
	assert.Equal(t, time.Minute, wc.Timeout)

	c.Warehouse.Dialect = "oracle"
	_, err = WarehouseConfig(c)
	assert.Error(t, err)
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, "abc", unquote("'abc'"))
	assert.Equal(t, "abc", unquote(`"abc"`))
	assert.Equal(t, "'abc", unquote("'abc"))
	assert.Equal(t, "", unquote("''"))
	assert.Equal(t, "x", unquote(" x "))
}
