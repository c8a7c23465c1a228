package pokertableview

// Emit helpers. All run with the engine lock held; consumers receiving the
// view must treat it as read-only or clone it.

func (ve *viewEngine) emitViewUpdated() {
	ve.view.RefreshUpdateAt()
	ve.onViewUpdated(ve.view)
}

func (ve *viewEngine) emitErrorUpdated(err error) {
	ve.onViewErrorUpdated(ve.view, err)
}

func (ve *viewEngine) emitNotice(notice string) {
	ve.onNoticeUpdated(notice)
}

func (ve *viewEngine) emitStageUpdated(stage ShowdownStage) {
	ve.onShowdownStageUpdated(stage)
}
