package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
)

func lambdaCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve the chat route as an API Gateway Lambda function",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			lambda.Start(a.handler.Handle)
			return nil
		},
	}
}
