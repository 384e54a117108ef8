// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"errors"
	"fmt"
	"os"
	path "path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	toml "github.com/BurntSushi/toml"
	bq "google.golang.org/api/bigquery/v2"
)

const (
	defaultConnectionName  = "default"
	connectionsFileName    = "connections.toml"
	gobqHomeEnv            = "GOBQ_HOME"
	gobqDefaultConnNameEnv = "GOBQ_DEFAULT_CONNECTION_NAME"
)

// LoadConnectionConfig reads the connection called name from the toml file at
// filePath. An empty filePath means $GOBQ_HOME/connections.toml, falling back
// to ~/.gobq/connections.toml. An empty name means
// $GOBQ_DEFAULT_CONNECTION_NAME, falling back to "default".
//
//	[default]
//	project = "my-project"
//	location = "EU"
//	prefetched_row_limit = 10000
//	destination_table = "my-project.scratch.results"
func LoadConnectionConfig(filePath, name string) (*Config, *ConnectionSettings, error) {
	if name == "" {
		name = os.Getenv(gobqDefaultConnNameEnv)
	}
	if name == "" {
		name = defaultConnectionName
	}
	if filePath == "" {
		dir, err := getTomlFilePath(os.Getenv(gobqHomeEnv))
		if err != nil {
			return nil, nil, err
		}
		filePath = path.Join(dir, connectionsFileName)
	}
	if err := validateFilePermission(filePath); err != nil {
		return nil, nil, err
	}
	tomlInfo := make(map[string]interface{})
	if _, err := toml.DecodeFile(filePath, &tomlInfo); err != nil {
		return nil, nil, fmt.Errorf("decoding %v: %w", filePath, err)
	}
	section, ok := tomlInfo[name].(map[string]interface{})
	if !ok {
		return nil, nil, &BigQueryError{
			Number:      ErrCodeFailedToFindConnectionInToml,
			Message:     errMsgFailedToFindConnectionInToml,
			MessageArgs: []interface{}{name},
		}
	}
	cfg := &Config{ThrowNotFound: true}
	settings := &ConnectionSettings{}
	if err := parseToml(cfg, settings, section); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger.Infof("connection %v loaded from %v", name, filePath)
	return cfg, settings, nil
}

func tomlParsingError(key string, value interface{}) error {
	return &BigQueryError{
		Number:      ErrCodeTomlFileParsingFailed,
		Message:     errMsgFailedToParseTomlFile,
		MessageArgs: []interface{}{key, value},
	}
}

func parseToml(cfg *Config, s *ConnectionSettings, connection map[string]interface{}) error {
	// sorted so the first bad key reported is deterministic. The project comes
	// first since dataset and table references default to it.
	keys := make([]string, 0, len(connection))
	for k := range connection {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := isProjectKey(keys[i]), isProjectKey(keys[j])
		if pi != pj {
			return pi
		}
		return keys[i] < keys[j]
	})
	for _, key := range keys {
		if err := parseTomlKey(cfg, s, strings.ToLower(key), connection[key]); err != nil {
			logger.Debugf("invalid value for %v: %v", key, err)
			return tomlParsingError(key, connection[key])
		}
	}
	return nil
}

func isProjectKey(key string) bool {
	key = strings.ToLower(key)
	return key == "project" || key == "project_id"
}

func parseTomlKey(cfg *Config, s *ConnectionSettings, key string, value interface{}) error {
	var err error
	switch key {
	case "project", "project_id":
		cfg.ProjectID, err = parseString(value)
	case "location":
		cfg.Location, err = parseString(value)
	case "throw_not_found":
		cfg.ThrowNotFound, err = parseBool(value)
	case "buffer_size":
		cfg.BufferSize, err = parseInt(value)
	case "initial_retry_delay":
		cfg.RetrySettings.InitialRetryDelay, err = parseDuration(value)
	case "max_retry_delay":
		cfg.RetrySettings.MaxRetryDelay, err = parseDuration(value)
	case "retry_delay_multiplier":
		cfg.RetrySettings.RetryDelayMultiplier, err = parseFloat(value)
	case "total_retry_timeout":
		cfg.RetrySettings.TotalTimeout, err = parseDuration(value)
	case "max_retry_attempts":
		cfg.RetrySettings.MaxAttempts, err = parseInt(value)
	case "retriable_error_messages":
		var msgs []string
		if msgs, err = parseStrings(value); err == nil {
			retryConfigOf(cfg).RetriableErrorMessages = msgs
		}
	case "retriable_regexes":
		var exprs []string
		if exprs, err = parseStrings(value); err == nil {
			retryConfigOf(cfg).RetriableRegExes = exprs
		}

	case "request_timeout":
		var d time.Duration
		if d, err = parseDuration(value); err == nil {
			s.RequestTimeout = &d
		}
	case "job_timeout":
		var d time.Duration
		if d, err = parseDuration(value); err == nil {
			s.JobTimeout = &d
		}
	case "maximum_bytes_billed":
		s.MaximumBytesBilled, err = parseInt64Ptr(value)
	case "max_results":
		s.MaxResults, err = parseInt64Ptr(value)
	case "prefetched_row_limit":
		s.PrefetchedRowLimit, err = parseInt64Ptr(value)
	case "maximum_billing_tier":
		s.MaximumBillingTier, err = parseInt64Ptr(value)
	case "use_query_cache":
		s.UseQueryCache, err = parseBoolPtr(value)
	case "flatten_results":
		s.FlattenResults, err = parseBoolPtr(value)
	case "use_legacy_sql":
		s.UseLegacySQL, err = parseBoolPtr(value)
	case "allow_large_results":
		s.AllowLargeResults, err = parseBoolPtr(value)
	case "default_dataset":
		var v string
		if v, err = parseString(value); err == nil {
			s.DefaultDataset, err = parseDatasetReference(v, cfg.ProjectID)
		}
	case "destination_table":
		var v string
		if v, err = parseString(value); err == nil {
			s.DestinationTable, err = parseTableReference(v, cfg.ProjectID)
		}
	case "priority":
		var v string
		if v, err = parseString(value); err == nil {
			p := Priority(strings.ToUpper(v))
			s.Priority = &p
		}
	case "create_disposition":
		var v string
		if v, err = parseString(value); err == nil {
			d := CreateDisposition(strings.ToUpper(v))
			s.CreateDisposition = &d
		}
	case "write_disposition":
		var v string
		if v, err = parseString(value); err == nil {
			d := WriteDisposition(strings.ToUpper(v))
			s.WriteDisposition = &d
		}
	case "schema_update_options":
		var opts []string
		if opts, err = parseStrings(value); err == nil {
			for _, o := range opts {
				s.SchemaUpdateOptions = append(s.SchemaUpdateOptions, SchemaUpdateOption(strings.ToUpper(o)))
			}
		}
	case "connection_properties":
		props, ok := value.(map[string]interface{})
		if !ok {
			return errors.New("not a table")
		}
		names := make([]string, 0, len(props))
		for k := range props {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			v, perr := parseString(props[k])
			if perr != nil {
				return perr
			}
			s.ConnectionProperties = append(s.ConnectionProperties, &ConnectionProperty{Key: k, Value: v})
		}
	case "read_api_total_to_page_ratio":
		var f float64
		if f, err = parseFloat(value); err == nil {
			readConfigOf(s).TotalToPageRowCountRatio = f
		}
	case "read_api_min_result_size":
		var n *int64
		if n, err = parseInt64Ptr(value); err == nil {
			readConfigOf(s).MinResultSize = *n
		}
	case "read_api_buffer_size":
		var n int
		if n, err = parseInt(value); err == nil {
			readConfigOf(s).BufferSize = n
		}
	default:
		return fmt.Errorf("unknown key %v", key)
	}
	return err
}

func retryConfigOf(cfg *Config) *RetryConfig {
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = &RetryConfig{}
	}
	return cfg.RetryConfig
}

func readConfigOf(s *ConnectionSettings) *ReadClientConnectionConfiguration {
	if s.ReadClientConnectionConfiguration == nil {
		s.ReadClientConnectionConfiguration = &ReadClientConnectionConfiguration{}
	}
	return s.ReadClientConnectionConfiguration
}

// parseDatasetReference accepts "dataset" or "project.dataset".
func parseDatasetReference(v, defaultProject string) (*bq.DatasetReference, error) {
	parts := strings.Split(v, ".")
	switch len(parts) {
	case 1:
		return &bq.DatasetReference{ProjectId: defaultProject, DatasetId: parts[0]}, nil
	case 2:
		return &bq.DatasetReference{ProjectId: parts[0], DatasetId: parts[1]}, nil
	}
	return nil, fmt.Errorf("invalid dataset %q", v)
}

// parseTableReference accepts "dataset.table" or "project.dataset.table".
func parseTableReference(v, defaultProject string) (*bq.TableReference, error) {
	parts := strings.Split(v, ".")
	switch len(parts) {
	case 2:
		return &bq.TableReference{ProjectId: defaultProject, DatasetId: parts[0], TableId: parts[1]}, nil
	case 3:
		return &bq.TableReference{ProjectId: parts[0], DatasetId: parts[1], TableId: parts[2]}, nil
	}
	return nil, fmt.Errorf("invalid table %q", v)
}

func parseString(i interface{}) (string, error) {
	v, ok := i.(string)
	if !ok {
		return "", errors.New("failed to convert the value to string")
	}
	return v, nil
}

func parseStrings(i interface{}) ([]string, error) {
	items, ok := i.([]interface{})
	if !ok {
		return nil, errors.New("failed to convert the value to a list")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		v, err := parseString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseInt64(i interface{}) (int64, error) {
	switch v := i.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, errors.New("failed to convert the value to integer")
}

func parseInt(i interface{}) (int, error) {
	v, err := parseInt64(i)
	return int(v), err
}

func parseInt64Ptr(i interface{}) (*int64, error) {
	v, err := parseInt64(i)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseFloat(i interface{}) (float64, error) {
	switch v := i.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	}
	return 0, errors.New("failed to convert the value to float")
}

func parseBool(i interface{}) (bool, error) {
	switch v := i.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	}
	return false, errors.New("failed to convert the value to boolean")
}

func parseBoolPtr(i interface{}) (*bool, error) {
	v, err := parseBool(i)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseDuration reads a Go duration string ("90s") or a number of seconds.
func parseDuration(i interface{}) (time.Duration, error) {
	switch v := i.(type) {
	case int64:
		return time.Duration(v) * time.Second, nil
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		return time.ParseDuration(v)
	}
	return 0, errors.New("failed to convert the value to duration")
}

func getTomlFilePath(filePath string) (string, error) {
	if filePath != "" {
		return filePath, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return path.Join(homeDir, ".gobq"), nil
}

// validateFilePermission rejects a config file others could have written to.
func validateFilePermission(filePath string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	if permission := fileInfo.Mode().Perm(); permission&0o022 != 0 {
		return &BigQueryError{
			Number:      ErrCodeInvalidFilePermission,
			Message:     errMsgInvalidFilePermission,
			MessageArgs: []interface{}{filePath, permission},
		}
	}
	return nil
}
