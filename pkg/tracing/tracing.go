// Package tracing 提供基于OpenTelemetry的追踪封装
//
// # 核心概念
//
// 1. **Trace（追踪）**：一个完整的请求链路，例如"创建图书"从HTTP入口到写库
//
// 2. **Span（跨度）**：一个操作单元，包含名称、耗时、状态和属性
//
// 3. **SpanContext（上下文）**：TraceID标识整条链路，SpanID标识当前操作
//
// # 本服务的Span结构
//
//	Trace: POST /api/v1/books
//	└─ Span: POST /api/v1/books（HTTP服务端Span，沿用请求头traceparent中的上游链路）
//	   └─ Span: BookService.Create
//	   └─ （仓储调用不单独建Span，由GORM/Redis的耗时体现在父Span中）
//
// # 使用示例
//
//	shutdown, err := tracing.InitTracer(tracing.Options{
//	    ServiceName: "book-catalog",
//	    Endpoint:    "localhost:4317",
//	    SampleRatio: 1,
//	})
//	defer shutdown(context.Background())
//
//	ctx, span := tracing.StartSpan(ctx, "book-service", "BookService.Create")
//	defer span.End()
//
// 未调用InitTracer时，otel全局Provider是no-op实现，StartSpan几乎零开销，
// 业务代码不需要判断追踪是否开启
package tracing

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Options 追踪配置
type Options struct {
	ServiceName string
	Endpoint    string  // OTLP gRPC端点（Jaeger默认localhost:4317）
	SampleRatio float64 // 采样率，>=1为全量采样
}

// InitTracer 初始化OpenTelemetry Tracer
//
// 返回的shutdown必须在程序退出前调用，否则可能丢失最后一批Span
func InitTracer(opts Options) (func(context.Context) error, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 1. 创建OTLP gRPC Exporter
	exporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(opts.Endpoint),
		otlptracegrpc.WithInsecure(), // 禁用TLS（生产环境应启用）
	)
	if err != nil {
		return nil, fmt.Errorf("创建OTLP exporter失败: %w", err)
	}

	// 2. 创建Resource（资源属性）
	res, err := resource.New(
		ctx,
		resource.WithAttributes(semconv.ServiceName(opts.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("创建资源属性失败: %w", err)
	}

	// 3. 创建Tracer Provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(newSampler(opts.SampleRatio)),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	// 4. 设置全局TracerProvider和上下文传播器
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, // W3C Trace Context
			propagation.Baggage{},
		),
	)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}

	return shutdown, nil
}

// newSampler 根据采样率选择采样器
// ParentBased：上游已决定采样时沿用上游决定，保证链路完整
func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// StartSpan 创建Span
// 如果ctx包含父Span，新Span会自动成为子Span
func StartSpan(ctx context.Context, tracerName, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName)
}

// StartServerSpan 为一次入站HTTP请求创建服务端Span
// 先用全局传播器从请求头提取上游的Trace上下文（W3C traceparent），新Span成为上游Span的子Span
func StartServerSpan(ctx context.Context, tracerName, spanName string, header http.Header) (context.Context, trace.Span) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(header))
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindServer))
}

// EndSpan 根据错误设置Span状态并结束Span
// 用法：defer func() { tracing.EndSpan(span, err) }()
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// ExtractTraceID 提取TraceID（用于日志关联）
func ExtractTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// ExtractSpanID 提取SpanID
func ExtractSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().SpanID().String()
}
