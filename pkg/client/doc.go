// Package client provides a small, hand-written Go SDK for the durable
// execution engine's HTTP introspection API.
//
// It covers the programmatic surface of engine specification §6:
// starting workflows and tasks, reading execution state, waiting for
// completion, listing and cancelling executions, and sending signals.
//
// # Basic usage
//
//	c := client.New("http://localhost:8080", client.WithAPIKey("secret"))
//
//	exec, err := c.StartWorkflow(ctx, client.StartWorkflowRequest{
//	    FunctionName: "sequential_tasks",
//	    Inputs:       client.JSON{"start": 0},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	done, err := c.WaitForExecution(ctx, exec.ID, 30*time.Second, 0)
//
// # Real-time events
//
//	err := c.ConnectWebSocket(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.CloseWebSocket()
//
//	for event := range c.Events() {
//	    fmt.Printf("event: %s\n", event.Type)
//	}
package client
