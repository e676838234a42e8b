// Copyright 2024-2025 ApeCloud, Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/xdg-go/scram"

	"github.com/riftdb/riftdb/engine/enginetest"
	"github.com/riftdb/riftdb/planner"
	"github.com/riftdb/riftdb/session"
)

var (
	nodeID   = "riftdb-0"
	logLevel = int(logrus.InfoLevel)
)

func init() {
	flag.StringVar(&nodeID, "node-id", nodeID, "The node id this engine instance reports.")
	flag.IntVar(&logLevel, "loglevel", logLevel, "The log level to use.")
}

// devCredentialStore is a placeholder session.CredentialStore for local
// bring-up: PLAIN accepts any username whose password equals the
// username, and SCRAM is declined entirely. A production deployment wires
// a real account store here instead.
type devCredentialStore struct{}

func (devCredentialStore) PlainPassword(username string) (string, bool) {
	if username == "" {
		return "", false
	}
	return username, true
}

func (devCredentialStore) SCRAMCredentials(string) (scram.StoredCredentials, bool) {
	return scram.StoredCredentials{}, false
}

func main() {
	flag.Parse()
	logrus.SetLevel(logrus.Level(logLevel))

	eng := enginetest.NewMock(nodeID)
	eng.CreateTableSpace("default")
	eng.SetTranslator(planner.New(eng))

	metrics := session.NewMetrics(prometheus.DefaultRegisterer)

	logrus.WithField("nodeId", nodeID).Infoln("riftdb bootstrap ready")

	// Accepting connections and framing messages onto Session.Dispatch is
	// the transport's job (spec.md §1 names it an external collaborator);
	// this binary only demonstrates that the wiring type-checks end to
	// end by opening and tearing down one session against the in-memory
	// engine.
	demoSession := session.New(1, "local", eng, devCredentialStore{}, metrics)
	demoSession.Close(context.Background())
}
