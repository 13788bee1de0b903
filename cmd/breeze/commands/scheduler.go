package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/naveenvino/breezepython/internal/scheduler"
	"github.com/naveenvino/breezepython/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run scheduled jobs",
	Long: `Starts the scheduler daemon.

Registered jobs:
  session_check  - weekdays 8:30 AM, validates the vendor session
  bar_collection - weekdays 4:00 PM, tops up hourly index bars

Example:
  go run ./cmd/breeze scheduler start
  go run ./cmd/breeze scheduler run bar_collection`,
}

var schedulerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler daemon",
	RunE:  runSchedulerStart,
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run [job]",
	Short: "Run a job immediately",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulerJob,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func buildScheduler(application *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(application.logger)

	jobList := []scheduler.Job{
		jobs.NewSessionCheckJob(application.vendor, application.logger),
		jobs.NewBarCollectionJob(application.collector, application.logger),
	}

	for _, job := range jobList {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

func runSchedulerStart(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	sched, err := buildScheduler(application)
	if err != nil {
		return err
	}

	sched.Start()
	fmt.Println("Scheduler running, press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	name := args[0]

	// Run inline rather than through the scheduler, so the process
	// does not exit before the job finishes.
	job := jobByName(application, name)
	if job == nil {
		return fmt.Errorf("job %s not found", name)
	}

	fmt.Printf("Running job %s\n", name)
	if err := job.Run(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("Job finished")
	return nil
}

func jobByName(application *app, name string) scheduler.Job {
	switch name {
	case "session_check":
		return jobs.NewSessionCheckJob(application.vendor, application.logger)
	case "bar_collection":
		return jobs.NewBarCollectionJob(application.collector, application.logger)
	default:
		return nil
	}
}
