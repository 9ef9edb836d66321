package common

const (
	RedisStreamSnapshotBuild    = "pipeline.snapshot.build"
	RedisStreamVerification     = "pipeline.verification"
	RedisStreamThemeAggregation = "pipeline.theme.aggregation"

	RedisStreamGroup    = "pipeline-group"
	RedisStreamConsumer = "pipeline-consumer"

	RedisStreamMaxLen = 1000
)
