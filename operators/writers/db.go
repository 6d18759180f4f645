package writers

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx"

	"github.com/saf-project/saf/errs"
	"github.com/saf-project/saf/frame"
	"github.com/saf-project/saf/operator"
)

// DBBody implements the Writer (DB) operator of §4.6: appends one row per
// frame (camera_name, frame_id, tags, bboxes, ids, features) to a
// Postgres table via jackc/pgx, the structured row-oriented external log
// contract that distinguishes it from the flat-file writers above.
type DBBody struct {
	ConnString string
	Table      string
	CameraName string

	conn   *pgx.Conn
	logger *log.Logger
}

func (b *DBBody) Init() error {
	if b.logger == nil {
		b.logger = log.Default()
	}
	if b.Table == "" {
		b.Table = "saf_frames"
	}
	cfg, err := pgx.ParseConnectionString(b.ConnString)
	if err != nil {
		return errs.NewConfigError("writers: db: parse connection string: %v", err)
	}
	conn, err := pgx.Connect(cfg)
	if err != nil {
		return errs.NewRuntimeError("writers: db: connect: %v", err)
	}
	b.conn = conn
	return nil
}

func (b *DBBody) Process(op *operator.Base) error {
	f, ok := op.GetFrame("input")
	if !ok {
		return nil
	}
	if f.IsStopFrame() {
		return nil
	}

	tags, _ := frame.Get[string](f, "tags")
	bboxes, _ := frame.Get[string](f, "bounding_boxes")
	ids, _ := frame.Get[string](f, "ids")
	features, _ := frame.Get[string](f, "features")

	sql := "INSERT INTO " + b.Table + " (camera_name, frame_id, tags, bboxes, ids, features) VALUES ($1, $2, $3, $4, $5, $6)"
	if _, err := b.conn.Exec(sql, b.CameraName, f.FrameID(), tags, bboxes, ids, features); err != nil {
		b.logger.Error("writers: db: insert failed", "err", err)
		return errs.NewRuntimeError("writers: db: insert: %v", err)
	}
	return nil
}

func (b *DBBody) OnStop() {
	if b.conn != nil {
		_ = b.conn.Close()
	}
}

func init() {
	operator.Register("Writer", func(name string, params map[string]interface{}) (operator.Operator, error) {
		body := &DBBody{
			ConnString: paramString(params, "connection_string", ""),
			Table:      paramString(params, "table", "saf_frames"),
			CameraName: paramString(params, "camera_name", ""),
		}
		if strings.TrimSpace(body.ConnString) == "" {
			return nil, errs.NewConfigError("writers: db: connection_string is required")
		}
		return operator.NewBase(name, "Writer", []string{"input"}, nil, body, log.Default()), nil
	})
}
