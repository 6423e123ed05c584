package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для управления executions.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "execution",
		Aliases: []string{"exec"},
		Short:   "Manage executions",
	}

	cmd.AddCommand(
		newExecutionListCmd(clientFn, outputFn),
		newExecutionCreateCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
		newExecutionLogsCmd(clientFn, outputFn),
		newExecutionEnqueueCmd(clientFn, outputFn),
	)

	return cmd
}

var executionHeaders = []string{"ID", "STATUS", "ATTEMPTS", "MAX_RETRIES", "RESULT_KEY", "CREATED"}

func executionRow(e ExecutionResponse) []string {
	return []string{
		e.ID,
		e.Status,
		strconv.Itoa(e.Attempts),
		strconv.Itoa(e.MaxRetries),
		e.ResultKey,
		e.CreatedAt,
	}
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListExecutionsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executions, err := client.ListExecutions(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(executions))
			for i, e := range executions {
				rows[i] = executionRow(e)
			}

			out.Print(executionHeaders, rows, executions)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of results to skip")

	return cmd
}

func newExecutionCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var maxRetries int

	cmd := &cobra.Command{
		Use:   "create INPUT",
		Short: "Create a new execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := CreateExecutionRequest{Input: args[0]}
			if cmd.Flags().Changed("max-retries") {
				req.MaxRetries = &maxRetries
			}

			exec, err := client.CreateExecution(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution created: %s", exec.ID))
			out.Print(executionHeaders, [][]string{executionRow(*exec)}, exec)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Attempt budget (server default if not specified)")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution details with attempt log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			if out.IsJSON() {
				out.JSON(exec)
				return nil
			}

			out.Table(executionHeaders, [][]string{executionRow(*exec)})
			if len(exec.Logs) > 0 {
				out.Newline()
				out.Table(logHeaders, logRows(exec.Logs))
			}
			return nil
		},
	}
}

var logHeaders = []string{"ATTEMPT", "RESULT", "MESSAGE", "CREATED"}

func logRows(logs []LogResponse) [][]string {
	rows := make([][]string, len(logs))
	for i, l := range logs {
		result := "failed"
		if l.Message == "" {
			result = "ok"
		}
		rows[i] = []string{strconv.Itoa(l.Attempt), result, l.Message, l.CreatedAt}
	}
	return rows
}

func newExecutionLogsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "logs ID",
		Short: "Show attempt log of an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			logs, err := client.ListLogs(args[0])
			if err != nil {
				return err
			}

			out.Print(logHeaders, logRows(logs), logs)
			return nil
		},
	}
}

func newExecutionEnqueueCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue ID",
		Short: "Publish a PENDING execution to the queue again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.EnqueueExecution(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution enqueued: %s", exec.ID))
			return nil
		},
	}
}
