package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/config"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/frontdesk"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/httpapi"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/seed"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store/postgres"
)

func migrateCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations to the postgres store",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := postgres.Migrate(ctx, pool, dir)
			if err != nil {
				return err
			}
			for _, name := range applied {
				log.Info().Str("migration", name).Msg("applied")
			}
			return nil
		},
	}
	cmd.Flags().String("dir", "./migrations", "path to migrations directory")
	return cmd
}

func seedCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the default doctors and optional random patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("patients")
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			doctors, err := seed.SeedDoctors(ctx, st, time.Now().UTC())
			if err != nil {
				return err
			}
			log.Info().Int("doctors", doctors).Msg("doctors seeded")

			if count <= 0 {
				return nil
			}
			services := frontdesk.NewServices(st, frontdesk.Options{UIDMaxAttempts: cfg.UIDMaxAttempts})
			patients, err := seed.SeedPatients(ctx, services.Registration, count)
			if err != nil {
				return err
			}
			for _, patient := range patients {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s %s\n", patient.PatientUID, patient.FirstName, patient.LastName)
			}
			return nil
		},
	}
	cmd.Flags().Int("patients", 0, "number of random patients to register")
	return cmd
}

func tokenCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a staff bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			token, err := httpapi.SignToken(cfg.JWTSecret, subject, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("role", httpapi.RoleReception, "staff role: ADMIN, RECEPTION, KIOSK, NURSE or DOCTOR")
	cmd.Flags().String("subject", "front-desk", "staff identifier recorded on writes")
	cmd.Flags().Duration("ttl", 12*time.Hour, "token lifetime")
	return cmd
}

func reconcileCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare a doctor's stored queue with the state replayed from the outbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, _ := cmd.Flags().GetString("doctor")
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			services := frontdesk.NewServices(st, frontdesk.Options{})
			drifts, err := services.Queue.Reconcile(ctx, doctorID)
			if err != nil {
				return err
			}
			for _, drift := range drifts {
				fmt.Fprintf(cmd.OutOrStdout(), "#%d\t%s\tstored=%s\treplayed=%s\n",
					drift.QueueNumber, drift.EntryID, drift.Stored, drift.Replayed)
			}
			if len(drifts) > 0 {
				return fmt.Errorf("%d queue entries out of step for %s", len(drifts), doctorID)
			}
			log.Info().Str("doctor_id", doctorID).Msg("queue matches outbox")
			return nil
		},
	}
	cmd.Flags().String("doctor", "", "doctor id to check")
	_ = cmd.MarkFlagRequired("doctor")
	return cmd
}
