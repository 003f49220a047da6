package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/maloquacious/count/internal/store"
	"github.com/spf13/cobra"
)

func newCounterCommand() *cobra.Command {
	counterCmd := &cobra.Command{
		Use:     "counter",
		Aliases: []string{"c"},
		Short:   "Create, inspect and change counters",
	}

	var initial int64
	newCmd := &cobra.Command{
		Use:   "new NAME",
		Short: "Create a counter",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s store.Counters, args []string) (any, error) {
			nc := store.NewCounter{Name: args[0]}
			if cmd.Flags().Changed("value") {
				nc.Value = &initial
			}
			return s.CreateCounter(cmd.Context(), nc)
		}),
	}
	newCmd.Flags().Int64Var(&initial, "value", 0, "starting value")

	getCmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show one counter",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s store.Counters, args []string) (any, error) {
			id, err := parseID(args[0])
			if err != nil {
				return nil, err
			}
			return s.GetCounter(cmd.Context(), id)
		}),
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all counters",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, s store.Counters, args []string) (any, error) {
			return s.ListCounters(cmd.Context())
		}),
	}

	var (
		newName  string
		newValue int64
	)
	setCmd := &cobra.Command{
		Use:   "set ID",
		Short: "Change a counter's name and/or value",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s store.Counters, args []string) (any, error) {
			id, err := parseID(args[0])
			if err != nil {
				return nil, err
			}
			uc := store.UpdateCounter{ID: id}
			if cmd.Flags().Changed("name") {
				uc.Name = &newName
			}
			if cmd.Flags().Changed("value") {
				uc.Value = &newValue
			}
			return s.UpdateCounter(cmd.Context(), uc)
		}),
	}
	setCmd.Flags().StringVar(&newName, "name", "", "new name")
	setCmd.Flags().Int64Var(&newValue, "value", 0, "new value")

	rmCmd := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a counter",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s store.Counters, args []string) (any, error) {
			id, err := parseID(args[0])
			if err != nil {
				return nil, err
			}
			return map[string]int64{"deleted": id}, s.DeleteCounter(cmd.Context(), id)
		}),
	}

	var amount int64
	incrCmd := &cobra.Command{
		Use:   "incr ID",
		Short: "Add to a counter (negative amounts decrement)",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s store.Counters, args []string) (any, error) {
			id, err := parseID(args[0])
			if err != nil {
				return nil, err
			}
			return s.IncrementCounter(cmd.Context(), id, amount)
		}),
	}
	incrCmd.Flags().Int64VarP(&amount, "by", "b", 1, "amount to add")

	resetCmd := &cobra.Command{
		Use:   "reset ID",
		Short: "Set a counter back to zero",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s store.Counters, args []string) (any, error) {
			id, err := parseID(args[0])
			if err != nil {
				return nil, err
			}
			return s.ResetCounter(cmd.Context(), id)
		}),
	}

	counterCmd.AddCommand(newCmd, getCmd, listCmd, setCmd, rmCmd, incrCmd, resetCmd)
	return counterCmd
}

// withStore opens a migrated store, runs fn, and prints its result as JSON.
func withStore(fn func(cmd *cobra.Command, s store.Counters, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openReady(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		result, err := fn(cmd, s, args)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: counter id %q is not an integer", store.ErrValidation, arg)
	}
	return id, nil
}
