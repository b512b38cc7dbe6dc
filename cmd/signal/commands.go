package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/layer-3/signal/core"
	"github.com/urfave/cli/v2"
)

// withRuntime builds the runtime for a command and closes it afterwards.
func withRuntime(fn func(c *cli.Context, rt *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := newRuntime(c)
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(c, rt)
	}
}

func stateCommand() *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "show the authentication state",
		Action: withRuntime(func(c *cli.Context, rt *runtime) error {
			snapshot := rt.auth.Snapshot(c.Context)
			out := c.App.Writer

			fmt.Fprintf(out, "state:   %s\n", snapshot.State)
			if snapshot.Wallet.Address != "" {
				fmt.Fprintf(out, "wallet:  %s\n", snapshot.Wallet.Address)
			}
			if snapshot.Allowlist.Err != nil {
				fmt.Fprintf(out, "allowlist lookup failed: %v\n", snapshot.Allowlist.Err)
			}
			return nil
		}),
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in with the wallet, or store a session token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "token", Usage: "session token issued by the platform, skips the wallet login"},
		},
		Action: withRuntime(func(c *cli.Context, rt *runtime) error {
			var err error
			if token := c.String("token"); token != "" {
				err = rt.auth.Login(c.Context, token)
			} else {
				err = rt.login.SignIn(c.Context)
			}
			if errors.Is(err, core.ErrLoginCanceled) {
				fmt.Fprintln(c.App.Writer, "login canceled")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "logged in, state: %s\n", rt.auth.Snapshot(c.Context).State)
			return nil
		}),
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "forget the session token",
		Action: withRuntime(func(c *cli.Context, rt *runtime) error {
			if err := rt.auth.Logout(c.Context); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "logged out")
			return nil
		}),
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "print the claims of the session token (not verified)",
		Action: withRuntime(func(c *cli.Context, rt *runtime) error {
			claims, err := rt.auth.Claims()
			if err != nil {
				return err
			}
			printClaims(c.App.Writer, claims)
			return nil
		}),
	}
}

func printClaims(out io.Writer, claims *core.SessionClaims) {
	fmt.Fprintf(out, "owner_id:    %s\n", claims.OwnerID)
	fmt.Fprintf(out, "instance_id: %s\n", claims.InstanceID)
	fmt.Fprintf(out, "key:         %s\n", claims.Key)
	if claims.IssuedAt != nil {
		fmt.Fprintf(out, "issued:      %s\n", claims.IssuedAt.Time.Format(time.RFC3339))
	}
	if claims.ExpiresAt != nil {
		fmt.Fprintf(out, "expires:     %s\n", claims.ExpiresAt.Time.Format(time.RFC3339))
	} else {
		fmt.Fprintln(out, "expires:     never")
	}
}

func keysCommand() *cli.Command {
	defaults := core.DefaultKeyRequest()
	return &cli.Command{
		Name:  "keys",
		Usage: "manage API keys",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "sign and submit a request for a new API key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "permissions", Usage: "raw permissions, e.g. 32,11", Value: defaults.Permissions},
					&cli.BoolFlag{Name: "expires", Usage: "whether the key expires", Value: defaults.Expires},
					&cli.StringFlag{Name: "expires-in", Usage: "lifetime of the key", Value: defaults.ExpiresIn},
				},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					secret, err := rt.keys.CreateKey(c.Context, core.KeyRequest{
						Permissions: c.String("permissions"),
						Expires:     c.Bool("expires"),
						ExpiresIn:   c.String("expires-in"),
					})
					if errors.Is(err, core.ErrIssuanceCanceled) {
						fmt.Fprintln(c.App.Writer, "key creation canceled")
						return nil
					}
					if err != nil {
						return err
					}

					fmt.Fprintf(c.App.Writer, "Here is your API key, it will only be shown once:\n\n  %s\n", secret)
					return nil
				}),
			},
		},
	}
}

func deploymentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "deployments",
		Usage: "list the deployments of an app, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "app", Usage: "application id", Required: true},
		},
		Action: withRuntime(func(c *cli.Context, rt *runtime) error {
			deployments, err := rt.deployments.List(c.Context, c.String("app"))
			if err != nil {
				return err
			}
			printDeployments(c.App.Writer, deployments)
			return nil
		}),
	}
}

func printDeployments(out io.Writer, deployments []core.Deployment) {
	if len(deployments) == 0 {
		fmt.Fprintln(out, "Deployments")
		return
	}
	fmt.Fprintf(out, "Deployments (%d)\n", len(deployments))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, d := range deployments {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.DeployID, d.SID, humanize.Time(d.Timestamp))
	}
	w.Flush()
}
