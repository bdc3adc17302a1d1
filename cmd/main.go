/*
Copyright 2025 Staffbooks Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/staffbooks/staffbooks"
	"github.com/staffbooks/staffbooks/config"
	"github.com/staffbooks/staffbooks/database"
	"github.com/staffbooks/staffbooks/internal/notification"
)

// Staffbooks wraps the root Cobra command of the CLI.
type Staffbooks struct {
	cmd *cobra.Command
}

// appInstance holds the runtime service and its configuration, shared by
// all subcommands.
type appInstance struct {
	service *staffbooks.Staffbooks
	cnf     *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the service before any
// command runs.
func preRun(app *appInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		service, err := setupService(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.service = service
		app.cnf = cnf
		return nil
	}
}

func setupService(cfg *config.Configuration) (*staffbooks.Staffbooks, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}
	service, err := staffbooks.NewStaffbooks(db)
	if err != nil {
		return nil, fmt.Errorf("error creating staffbooks: %v", err)
	}
	return service, nil
}

// NewCLI assembles the command-line interface.
func NewCLI() *Staffbooks {
	var configFile string
	app := &appInstance{}

	var rootCmd = &cobra.Command{
		Use:   "staffbooks",
		Short: "Staffing-agency reconciliation ledger",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./staffbooks.json", "Configuration file for staffbooks")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(migrateCommands(app))

	return &Staffbooks{cmd: rootCmd}
}

func (s *Staffbooks) executeCLI() {
	if err := s.cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()
	cli := NewCLI()
	cli.executeCLI()
}
