// Copyright (c) 2017 Intel Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metadata

import (
	"fmt"
	"time"

	"github.com/ajorgensen/heron/pkg/conf"
	"github.com/gocql/gocql"
	"github.com/pkg/errors"
)

var (
	cassandraAddressFlag           = conf.NewStringFlag("cassandra_addr", "Address of Cassandra DB endpoint", "127.0.0.1")
	cassandraPortFlag              = conf.NewIntFlag("cassandra_port", "Port of Cassandra DB endpoint", 9042)
	cassandraKeyspaceFlag          = conf.NewStringFlag("cassandra_keyspace", "Keyspace used to store metadata", "heron")
	cassandraCreateKeyspaceFlag    = conf.NewBoolFlag("cassandra_create_keyspace", "Create keyspace when it does not exist", true)
	cassandraUsernameFlag          = conf.NewStringFlag("cassandra_username", "Cassandra user name", "")
	cassandraPasswordFlag          = conf.NewStringFlag("cassandra_password", "Cassandra password", "")
	cassandraConnectionTimeoutFlag = conf.NewDurationFlag("cassandra_connection_timeout", "Timeout of connection to Cassandra", 10*time.Second)
	cassandraTimeoutFlag           = conf.NewDurationFlag("cassandra_timeout", "Timeout of Cassandra queries", 10*time.Second)
	cassandraIgnorePeerAddrFlag    = conf.NewBoolFlag("cassandra_ignore_peer_addr", "Use initial address instead of addresses advertised by peers", false)
	cassandraInitialHostLookupFlag = conf.NewBoolFlag("cassandra_initial_host_lookup", "Lookup cluster hosts when connecting", true)
	cassandraSslEnabledFlag        = conf.NewBoolFlag("cassandra_ssl", "Use SSL to connect to Cassandra", false)
	cassandraSslHostValidationFlag = conf.NewBoolFlag("cassandra_ssl_host_validation", "Validate Cassandra host certificate", false)
	cassandraSslCAPathFlag         = conf.NewStringFlag("cassandra_ssl_ca_path", "Path to CA certificate", "")
	cassandraSslCertPathFlag       = conf.NewStringFlag("cassandra_ssl_cert_path", "Path to client certificate", "")
	cassandraSslKeyPathFlag        = conf.NewStringFlag("cassandra_ssl_key_path", "Path to client key", "")
)

// CassandraConfig encodes the settings for connecting to the database.
type CassandraConfig struct {
	Address           string
	Port              int
	KeyspaceName      string
	CreateKeyspace    bool
	Username          string
	Password          string
	ConnectionTimeout time.Duration
	Timeout           time.Duration
	IgnorePeerAddr    bool
	InitialHostLookup bool
	SslEnabled        bool
	SslHostValidation bool
	SslCAPath         string
	SslCertPath       string
	SslKeyPath        string
}

// Cassandra keeps the Cassandra session alive and tags metadata with the invocation id.
type Cassandra struct {
	invocationID string
	config       CassandraConfig
	session      *gocql.Session
}

// DefaultCassandraConfig applies the Cassandra settings from the command line flags and
// environment variables.
func DefaultCassandraConfig() CassandraConfig {
	return CassandraConfig{
		Address:           cassandraAddressFlag.Value(),
		Port:              cassandraPortFlag.Value(),
		KeyspaceName:      cassandraKeyspaceFlag.Value(),
		CreateKeyspace:    cassandraCreateKeyspaceFlag.Value(),
		Username:          cassandraUsernameFlag.Value(),
		Password:          cassandraPasswordFlag.Value(),
		ConnectionTimeout: cassandraConnectionTimeoutFlag.Value(),
		Timeout:           cassandraTimeoutFlag.Value(),
		IgnorePeerAddr:    cassandraIgnorePeerAddrFlag.Value(),
		InitialHostLookup: cassandraInitialHostLookupFlag.Value(),
		SslEnabled:        cassandraSslEnabledFlag.Value(),
		SslHostValidation: cassandraSslHostValidationFlag.Value(),
		SslCAPath:         cassandraSslCAPathFlag.Value(),
		SslCertPath:       cassandraSslCertPathFlag.Value(),
		SslKeyPath:        cassandraSslKeyPathFlag.Value(),
	}
}

// NewCassandra connects to Cassandra and returns metadata store of given invocation.
func NewCassandra(invocationID string, config CassandraConfig) (*Cassandra, error) {
	metadata := &Cassandra{
		invocationID: invocationID,
		config:       config,
	}
	if err := metadata.connect(); err != nil {
		return nil, err
	}
	return metadata, nil
}

func sslOptions(config CassandraConfig) *gocql.SslOptions {
	return &gocql.SslOptions{
		EnableHostVerification: config.SslHostValidation,
		CaPath:                 config.SslCAPath,
		CertPath:               config.SslCertPath,
		KeyPath:                config.SslKeyPath,
	}
}

// clusterConfig prepares configuration of Cassandra cluster without keyspace.
func clusterConfig(config CassandraConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(config.Address)
	cluster.Port = config.Port

	cluster.Consistency = gocql.LocalOne
	cluster.SerialConsistency = gocql.LocalSerial

	cluster.ProtoVersion = 4
	cluster.ConnectTimeout = config.ConnectionTimeout
	cluster.Timeout = config.Timeout
	cluster.IgnorePeerAddr = config.IgnorePeerAddr
	cluster.DisableInitialHostLookup = !config.InitialHostLookup

	if config.Username != "" && config.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}
	if config.SslEnabled {
		cluster.SslOpts = sslOptions(config)
	}
	return cluster
}

func createKeyspaceQuery(keyspace string) string {
	return fmt.Sprintf("CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = {'class': 'SimpleStrategy', 'replication_factor': 1};", keyspace)
}

const createTableQuery = `CREATE TABLE IF NOT EXISTS metadata (invocation_id text, kind text, time timestamp, timeuuid TIMEUUID, metadata map<text,text>, PRIMARY KEY ((invocation_id), timeuuid)) WITH CLUSTERING ORDER BY (timeuuid DESC);`

func createKeyspace(config CassandraConfig) error {
	session, err := clusterConfig(config).CreateSession()
	if err != nil {
		return errors.Wrap(err, "cannot create session for creating keyspace")
	}
	defer session.Close()

	return errors.Wrap(session.Query(createKeyspaceQuery(config.KeyspaceName)).Exec(), "cannot create keyspace")
}

// connect creates a session to the Cassandra cluster. It should only be called once.
// Keyspace has to exist before a session bound to it is created.
func (m *Cassandra) connect() error {
	if m.config.CreateKeyspace {
		if err := createKeyspace(m.config); err != nil {
			return err
		}
	}

	cluster := clusterConfig(m.config)
	cluster.Keyspace = m.config.KeyspaceName

	session, err := cluster.CreateSession()
	if err != nil {
		return errors.Wrapf(err, "cannot connect to cassandra at %s:%d", m.config.Address, m.config.Port)
	}

	if err := session.Query(createTableQuery).Exec(); err != nil {
		session.Close()
		return errors.Wrap(err, "cannot create metadata table")
	}

	m.session = session
	return nil
}

func (m *Cassandra) storeMap(metadata map[string]string, kind string) error {
	err := m.session.Query(`INSERT INTO metadata (invocation_id, kind, time, timeuuid, metadata) VALUES (?, ?, ?, ?, ?)`,
		m.invocationID, kind, time.Now(), gocql.TimeUUID(), metadata).Exec()
	return errors.Wrapf(err, "cannot publish metadata of kind %q", kind)
}

// Record stores a key and value and associates it with the invocation id.
func (m *Cassandra) Record(key, value, kind string) error {
	return m.storeMap(map[string]string{key: value}, kind)
}

// RecordMap stores a key and value map and associates it with the invocation id.
func (m *Cassandra) RecordMap(metadata map[string]string, kind string) error {
	return m.storeMap(metadata, kind)
}

// GetByKind retrieves single kind from the database.
// Returns error if no kind or too many groups found.
func (m *Cassandra) GetByKind(kind string) (map[string]string, error) {
	var metadata map[string]string
	maps := []map[string]string{}

	iter := m.session.Query(`SELECT metadata FROM metadata WHERE invocation_id = ? AND kind = ? ALLOW FILTERING`, m.invocationID, kind).Iter()
	for iter.Scan(&metadata) {
		maps = append(maps, metadata)
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrapf(err, "cannot retrieve metadata of kind %q", kind)
	}

	if len(maps) != 1 {
		return nil, errors.Errorf("found %d metadata maps of kind %q for invocation %q, expected exactly one", len(maps), kind, m.invocationID)
	}
	return maps[0], nil
}

// Clear deletes all metadata entries associated with the current invocation id.
func (m *Cassandra) Clear() error {
	return errors.Wrap(m.session.Query(`DELETE FROM metadata WHERE invocation_id = ?`, m.invocationID).Exec(),
		"cannot clear metadata")
}

// Close closes the session.
func (m *Cassandra) Close() {
	m.session.Close()
}
