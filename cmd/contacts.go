package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/notify"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage report recipients",
	Long:  `Commands for the contacts file (CONTACTS_FILE) that --notify and report send use.`,
}

var contactsAddCmd = &cobra.Command{
	Use:   "add NAME EMAIL",
	Short: "Add or replace a contact",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := notify.LoadContacts(config.Load().Contacts.File)
		if err != nil {
			return err
		}
		c, err := book.Add(args[0], args[1])
		if err != nil {
			return err
		}
		if err := book.Save(); err != nil {
			return err
		}
		fmt.Printf("Saved %s <%s>\n", c.Name, c.Email)
		return nil
	},
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := notify.LoadContacts(config.Load().Contacts.File)
		if err != nil {
			return err
		}
		list := book.List()
		if len(list) == 0 {
			fmt.Println("No contacts yet, add one with: face-attendance contacts add NAME EMAIL")
			return nil
		}
		for _, c := range list {
			fmt.Printf("%-20s %s\n", c.Name, c.Email)
		}
		return nil
	},
}

var contactsRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := notify.LoadContacts(config.Load().Contacts.File)
		if err != nil {
			return err
		}
		if err := book.Remove(args[0]); err != nil {
			return err
		}
		if err := book.Save(); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(contactsCmd)
	contactsCmd.AddCommand(contactsAddCmd, contactsListCmd, contactsRemoveCmd)
}
