package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"stagehub/internal/app"
	"stagehub/internal/config"
	"stagehub/internal/db"
	"stagehub/internal/domain"
	"stagehub/internal/engine"
	"stagehub/internal/repo"
	"stagehub/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "shub",
	Short: "Stagehub CLI",
	Long: `Stagehub coordinates the internship lifecycle end to end:
requests opened by the direction, two-party agreement negotiation,
stages with their signed conventions, and dissertation deposits.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("STAGEHUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Int64("actor-id", 0, "acting person id")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(personCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(requestCmd())
	rootCmd.AddCommand(agreementCmd())
	rootCmd.AddCommand(stageCmd())
	rootCmd.AddCommand(depositCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default stagehub.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Inspect service configuration"}
	var file string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Parse and validate a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if path == "" {
				path = config.Path(viper.GetString("workspace"))
			}
			if _, err := config.FromFile(path); err != nil {
				return err
			}
			fmt.Println(path, "is valid")
			return nil
		},
	}
	validate.Flags().StringVar(&file, "file", "", "config file (defaults to the workspace stagehub.yml)")
	cfg.AddCommand(validate)
	return cfg
}

func personCmd() *cobra.Command {
	person := &cobra.Command{Use: "person", Short: "Manage the people directory"}
	person.AddCommand(personAddCmd())
	person.AddCommand(personListCmd())
	person.AddCommand(personSetCmd())
	return person
}

func personAddCmd() *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a person",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || role == "" {
				return fmt.Errorf("--name and --role required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				p, err := e.CreatePerson(ctx, actor, name, role)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "person name")
	cmd.Flags().StringVar(&role, "role", "", "role: admin, direction_member, department_head, supervisor, intern")
	return cmd
}

func personListCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List people",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListPeople(ctx, repo.PersonFilters{Role: role})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Active", "Available"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Role, p.Active, p.Available})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "filter by role")
	return cmd
}

func personSetCmd() *cobra.Command {
	var id int64
	var active, available string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Toggle active/available flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				p, err := e.SetPersonFlags(ctx, actor, id, parseBoolFlag(active), parseBoolFlag(available))
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "person id")
	cmd.Flags().StringVar(&active, "active", "", "true or false")
	cmd.Flags().StringVar(&available, "available", "", "true or false")
	return cmd
}

func catalogCmd() *cobra.Command {
	catalog := &cobra.Command{Use: "catalog", Short: "Manage departments and domains"}

	var deptName string
	deptAdd := &cobra.Command{
		Use:   "add-department",
		Short: "Add a department",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deptName == "" {
				return fmt.Errorf("--name required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				d, err := e.CreateDepartment(ctx, actor, deptName)
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	deptAdd.Flags().StringVar(&deptName, "name", "", "department name")

	var domName string
	var domDept int64
	domAdd := &cobra.Command{
		Use:   "add-domain",
		Short: "Add a domain under a department",
		RunE: func(cmd *cobra.Command, args []string) error {
			if domName == "" || domDept == 0 {
				return fmt.Errorf("--name and --department required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				d, err := e.CreateDomain(ctx, actor, domName, domDept)
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	domAdd.Flags().StringVar(&domName, "name", "", "domain name")
	domAdd.Flags().Int64Var(&domDept, "department", 0, "department id")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				depts, err := e.Repo.ListDepartments(ctx)
				if err != nil {
					return err
				}
				doms, err := e.Repo.ListDomains(ctx, 0)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"departments": depts, "domains": doms})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Domain ID", "Domain", "Department"})
				byID := map[int64]string{}
				for _, d := range depts {
					byID[d.ID] = d.Name
				}
				for _, d := range doms {
					tw.AppendRow(table.Row{d.ID, d.Name, byID[d.DepartmentID]})
				}
				tw.Render()
				return nil
			})
		},
	}

	catalog.AddCommand(deptAdd, domAdd, show)
	return catalog
}

func requestCmd() *cobra.Command {
	request := &cobra.Command{Use: "request", Short: "Manage internship requests"}

	var interns []int64
	create := &cobra.Command{
		Use:   "create",
		Short: "Open an internship request",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				req, err := e.CreateRequest(ctx, actor, engine.RequestCreateOptions{InternIDs: interns})
				if err != nil {
					return err
				}
				return printJSON(req)
			})
		},
	}
	create.Flags().Int64SliceVar(&interns, "intern", nil, "intern person id (repeatable)")

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List internship requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListRequests(ctx, repo.RequestFilters{Status: status})
				if err != nil {
					return err
				}
				return printJSON(items)
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "filter by status")

	var decideID int64
	var accept bool
	var comment string
	decide := &cobra.Command{
		Use:   "decide",
		Short: "Accept or reject a request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if decideID == 0 {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				req, err := e.DecideRequest(ctx, actor, decideID, accept, optionalString(comment))
				if err != nil {
					return err
				}
				return printJSON(req)
			})
		},
	}
	decide.Flags().Int64Var(&decideID, "id", 0, "request id")
	decide.Flags().BoolVar(&accept, "accept", false, "accept instead of reject")
	decide.Flags().StringVar(&comment, "comment", "", "decision comment")

	var delID int64
	del := &cobra.Command{
		Use:   "delete",
		Short: "Hard-delete a request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if delID == 0 {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				return e.DeleteRequest(ctx, actor, delID)
			})
		},
	}
	del.Flags().Int64Var(&delID, "id", 0, "request id")

	request.AddCommand(create, list, decide, del)
	return request
}

func agreementCmd() *cobra.Command {
	agreement := &cobra.Command{Use: "agreement", Short: "Negotiate agreement requests"}

	var showID int64
	show := &cobra.Command{
		Use:   "show",
		Short: "Show an agreement request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showID == 0 {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.Repo.GetAgreement(ctx, showID)
				if err != nil {
					return err
				}
				return printJSON(a)
			})
		},
	}
	show.Flags().Int64Var(&showID, "id", 0, "agreement id")

	var dirID int64
	var theme, nature, institution, specialty, degree string
	var deptID, domID, headID int64
	direction := &cobra.Command{
		Use:   "direction",
		Short: "Fill the direction member's section",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dirID == 0 {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				a, err := e.UpdateAgreementDirection(ctx, actor, dirID, engine.DirectionSectionOptions{
					ThemeName:          optionalString(theme),
					DepartmentID:       optionalInt64(deptID),
					DomainID:           optionalInt64(domID),
					NatureOfInternship: optionalString(nature),
					Institution:        optionalString(institution),
					Specialty:          optionalString(specialty),
					DegreeSought:       optionalString(degree),
					DepartmentHeadID:   optionalInt64(headID),
				})
				if err != nil {
					return err
				}
				return printJSON(a)
			})
		},
	}
	direction.Flags().Int64Var(&dirID, "id", 0, "agreement id")
	direction.Flags().StringVar(&theme, "theme", "", "theme name")
	direction.Flags().Int64Var(&deptID, "department", 0, "department id (write-once)")
	direction.Flags().Int64Var(&domID, "domain", 0, "domain id (write-once)")
	direction.Flags().StringVar(&nature, "nature", "", "nature of internship")
	direction.Flags().StringVar(&institution, "institution", "", "institution")
	direction.Flags().StringVar(&specialty, "specialty", "", "specialty")
	direction.Flags().StringVar(&degree, "degree", "", "degree sought")
	direction.Flags().Int64Var(&headID, "head", 0, "department head person id")

	var hID int64
	var hostService, startDate, endDate string
	var sessions, duration int
	var supervisorID int64
	head := &cobra.Command{
		Use:   "head",
		Short: "Fill the department head's section",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hID == 0 {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				a, err := e.UpdateAgreementHead(ctx, actor, hID, engine.HeadSectionOptions{
					HostService:          optionalString(hostService),
					StartDate:            optionalString(startDate),
					EndDate:              optionalString(endDate),
					SessionsPerWeek:      optionalInt(sessions),
					SessionDurationHours: optionalInt(duration),
					SupervisorID:         optionalInt64(supervisorID),
				})
				if err != nil {
					return err
				}
				return printJSON(a)
			})
		},
	}
	head.Flags().Int64Var(&hID, "id", 0, "agreement id")
	head.Flags().StringVar(&hostService, "host-service", "", "hosting service")
	head.Flags().StringVar(&startDate, "start", "", "start date YYYY-MM-DD")
	head.Flags().StringVar(&endDate, "end", "", "end date YYYY-MM-DD")
	head.Flags().IntVar(&sessions, "sessions", 0, "sessions per week")
	head.Flags().IntVar(&duration, "duration", 0, "session duration hours")
	head.Flags().Int64Var(&supervisorID, "supervisor", 0, "supervisor person id")

	var decID int64
	var accept bool
	decide := &cobra.Command{
		Use:   "decide",
		Short: "Accept or reject an agreement",
		RunE: func(cmd *cobra.Command, args []string) error {
			if decID == 0 {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				a, err := e.DecideAgreement(ctx, actor, decID, accept)
				if err != nil {
					return err
				}
				return printJSON(a)
			})
		},
	}
	decide.Flags().Int64Var(&decID, "id", 0, "agreement id")
	decide.Flags().BoolVar(&accept, "accept", false, "accept instead of reject")

	var delID int64
	del := &cobra.Command{
		Use:   "delete",
		Short: "Hard-delete an agreement request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if delID == 0 {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				return e.DeleteAgreement(ctx, actor, delID)
			})
		},
	}
	del.Flags().Int64Var(&delID, "id", 0, "agreement id")

	agreement.AddCommand(show, direction, head, decide, del)
	return agreement
}

func stageCmd() *cobra.Command {
	stage := &cobra.Command{Use: "stage", Short: "Track stages and conventions"}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListStages(ctx, repo.StageFilters{Status: status})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Agreement", "Supervisor", "Start", "End", "Status"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.AgreementRequestID, s.SupervisorID, s.StartDate, s.EndDate, s.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "filter by status")

	var setID int64
	var setStatus string
	set := &cobra.Command{
		Use:   "status",
		Short: "Move a stage along its lifecycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if setID == 0 || setStatus == "" {
				return fmt.Errorf("--id and --to required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				s, err := e.SetStageStatus(ctx, actor, setID, setStatus)
				if err != nil {
					return err
				}
				return printJSON(s)
			})
		},
	}
	set.Flags().Int64Var(&setID, "id", 0, "stage id")
	set.Flags().StringVar(&setStatus, "to", "", "target status")

	var extID int64
	var extEnd string
	extend := &cobra.Command{
		Use:   "extend",
		Short: "Extend a running stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if extID == 0 || extEnd == "" {
				return fmt.Errorf("--id and --end required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				s, err := e.ExtendStage(ctx, actor, extID, extEnd)
				if err != nil {
					return err
				}
				return printJSON(s)
			})
		},
	}
	extend.Flags().Int64Var(&extID, "id", 0, "stage id")
	extend.Flags().StringVar(&extEnd, "end", "", "new end date YYYY-MM-DD")

	var convStage int64
	var convDoc string
	convention := &cobra.Command{
		Use:   "convention",
		Short: "File a convention document for a stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if convStage == 0 || convDoc == "" {
				return fmt.Errorf("--stage and --document required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				c, err := e.AttachConvention(ctx, actor, convStage, convDoc)
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
	convention.Flags().Int64Var(&convStage, "stage", 0, "stage id")
	convention.Flags().StringVar(&convDoc, "document", "", "stored document name")

	var cdID int64
	var cdAccept bool
	var cdComment string
	conventionDecide := &cobra.Command{
		Use:   "convention-decide",
		Short: "Accept or reject a convention",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cdID == 0 {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				c, err := e.DecideConvention(ctx, actor, cdID, cdAccept, optionalString(cdComment))
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
	conventionDecide.Flags().Int64Var(&cdID, "id", 0, "convention id")
	conventionDecide.Flags().BoolVar(&cdAccept, "accept", false, "accept instead of reject")
	conventionDecide.Flags().StringVar(&cdComment, "comment", "", "decision comment")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Count stages per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				counts, err := e.Repo.CountStagesByStatus(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(counts)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Status", "Count"})
				for _, status := range domain.StageStatuses {
					tw.AppendRow(table.Row{status, counts[status]})
				}
				tw.Render()
				return nil
			})
		},
	}

	stage.AddCommand(list, set, extend, convention, conventionDecide, summary)
	return stage
}

func depositCmd() *cobra.Command {
	deposit := &cobra.Command{Use: "deposit", Short: "Manage dissertation deposits"}

	var stageID int64
	var themes []string
	create := &cobra.Command{
		Use:   "create",
		Short: "Submit a deposit for a completed stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if stageID == 0 {
				return fmt.Errorf("--stage required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				d, err := e.CreateDeposit(ctx, actor, engine.DepositCreateOptions{StageID: stageID, ThemeLines: themes})
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	create.Flags().Int64Var(&stageID, "stage", 0, "stage id")
	create.Flags().StringSliceVar(&themes, "theme", nil, "theme line (repeatable)")

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List deposits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListDeposits(ctx, repo.DepositFilters{Status: status})
				if err != nil {
					return err
				}
				return printJSON(items)
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "filter by status")

	var decID int64
	var approve bool
	decide := &cobra.Command{
		Use:   "decide",
		Short: "Approve or reject a deposit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if decID == 0 {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				d, err := e.DecideDeposit(ctx, actor, decID, approve)
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	decide.Flags().Int64Var(&decID, "id", 0, "deposit id")
	decide.Flags().BoolVar(&approve, "approve", false, "approve instead of reject")

	var archID int64
	archive := &cobra.Command{
		Use:   "archive",
		Short: "Archive a decided deposit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if archID == 0 {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := resolveActor(ctx, e)
				if err != nil {
					return err
				}
				d, err := e.ArchiveDeposit(ctx, actor, archID)
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	archive.Flags().Int64Var(&archID, "id", 0, "deposit id")

	deposit.AddCommand(create, list, decide, archive)
	return deposit
}

func logCmd() *cobra.Command {
	logRoot := &cobra.Command{Use: "log", Short: "Audit log"}
	var n int
	var evtType, entityKind string
	var entityID int64
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity", "Actor"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, fmt.Sprintf("%s/%d", evt.EntityKind, evt.EntityID), evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of events")
	tail.Flags().StringVar(&evtType, "type", "", "event type filter")
	tail.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	tail.Flags().Int64Var(&entityID, "entity-id", 0, "entity id")
	logRoot.AddCommand(tail)
	return logRoot
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var devLogin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			workspace := viper.GetString("workspace")
			e, conn, err := app.Open(cmd.Context(), workspace)
			if err != nil {
				return err
			}
			defer conn.Close()

			secret := os.Getenv("STAGEHUB_JWT_SECRET")
			if secret == "" {
				secret = e.Config.Auth.JWTSecret
			}
			if secret == "" {
				return fmt.Errorf("STAGEHUB_JWT_SECRET or auth.jwt_secret is required for bearer auth")
			}
			if addr == "" {
				addr = e.Config.Server.Addr
			}
			authCfg := server.AuthConfig{
				JWTSecret:       secret,
				TokenTTLMinutes: e.Config.Auth.TokenTTLMinutes,
				EnableDevLogin:  devLogin,
				Logger:          logger,
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(e, logger)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			logger.Info("serving Stagehub API", zap.String("addr", addr), zap.String("base_path", basePath))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "enable /auth/dev/login")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	e, conn, err := app.Open(ctx, viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, e)
}

// resolveActor maps --actor-id onto a directory entry.
func resolveActor(ctx context.Context, e engine.Engine) (domain.Actor, error) {
	id := viper.GetInt64("actor-id")
	if id == 0 {
		return domain.Actor{}, fmt.Errorf("--actor-id required")
	}
	p, err := e.Repo.GetPerson(ctx, id)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("actor %d: %w", id, err)
	}
	return domain.Actor{ID: p.ID, Role: p.Role}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt64(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func optionalInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func parseBoolFlag(s string) *bool {
	switch strings.ToLower(s) {
	case "true", "yes", "1":
		v := true
		return &v
	case "false", "no", "0":
		v := false
		return &v
	}
	return nil
}
