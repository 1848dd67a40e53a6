package main

type FlagType int
type FlagMap map[FlagType]string

const (
	listenAddress FlagType = iota
	servicePort

	configPath
	opaPath

	repositoryKind
	maxDepth
)

const (
	memoryRepository   string = "memory"
	postgresRepository string = "postgres"
	dynamoDBRepository string = "dynamodb"
)
